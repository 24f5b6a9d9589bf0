package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/estscraper/estscraper/internal/config"
	"github.com/estscraper/estscraper/internal/scraper"
)

var loginVisible bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to e-st.lv and save session cookies",
	Long: `Performs a login against the e-st.lv portal and saves the session
cookies to the config file. Later fetches seed these cookies into the
browser, which usually lets them skip the login form entirely.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginVisible, "visible", false, "Show browser window (for debugging)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	scr := scraper.NewESTScraper(creds, nil, loginVisible)
	defer scr.Close()

	if err := scr.Login(context.Background()); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println("Extracting cookies...")
	cookies, err := scr.SessionCookies()
	if err != nil {
		return fmt.Errorf("extracting cookies: %w", err)
	}

	if len(cookies) == 0 {
		return fmt.Errorf("no cookies found - login may not have succeeded")
	}

	cfg.Cookies = cookies
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("✓ Successfully saved %d cookies\n", len(cookies))
	return nil
}
