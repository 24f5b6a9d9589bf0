package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/estscraper/estscraper/internal/config"
	"github.com/estscraper/estscraper/internal/scraper"
	"github.com/estscraper/estscraper/pkg/models"
)

var (
	fetchPeriod      string
	fetchYear        int
	fetchMonth       int
	fetchDay         int
	fetchGranularity string
	fetchNeto        bool
	fetchOutfile     string
	fetchDebug       bool
	fetchStore       bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch meter readings from e-st.lv",
	Long: `Logs into the e-st.lv portal, loads the consumption chart for the
requested period and writes the readings to a JSON file.

Date components default to the current date. The output file defaults
to st_<year>.json, st_<year><month>.json or st_<year><month><day>.json
depending on the period; pass --outfile - to print to stdout.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchPeriod, "period", "month", "Data period: day, month or year")
	fetchCmd.Flags().IntVar(&fetchYear, "year", 0, "Year (default: current year)")
	fetchCmd.Flags().IntVar(&fetchMonth, "month", 0, "Month (1-12, default: current month)")
	fetchCmd.Flags().IntVar(&fetchDay, "day", 0, "Day (1-31, default: current day)")
	fetchCmd.Flags().StringVar(&fetchGranularity, "granularity", "", "Data granularity: D=daily, H=hourly (default: D for month, H for day)")
	fetchCmd.Flags().BoolVar(&fetchNeto, "neto", true, "Include production data (A-)")
	fetchCmd.Flags().StringVar(&fetchOutfile, "outfile", "", "Output JSON file (default: auto-generated, - for stdout)")
	fetchCmd.Flags().BoolVar(&fetchDebug, "debug", false, "Show browser window (for debugging)")
	fetchCmd.Flags().BoolVar(&fetchStore, "store", false, "Also store readings in the local database")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Credential problems must surface before any browser starts
	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	query, err := buildQuery()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if fetchDebug {
		fmt.Println("DEBUG MODE: Browser window will be visible")
	}

	scr := scraper.NewESTScraper(creds, cfg.Cookies, fetchDebug)
	defer scr.Close()

	readings, err := scr.FetchReadings(context.Background(), query, fetchNeto)
	if err != nil {
		return fmt.Errorf("fetching readings: %w", err)
	}

	if len(readings) == 0 {
		fmt.Println("No data found for the requested period")
	}

	// Keep the session cookies so the next run can skip the login dance
	if cookies, err := scr.SessionCookies(); err == nil && len(cookies) > 0 {
		cfg.Cookies = cookies
		if err := saveConfig(cfg); err != nil {
			fmt.Printf("⚠ Could not save session cookies: %v\n", err)
		}
	}

	if fetchStore {
		if err := storeReadings(readings, query); err != nil {
			return err
		}
	}

	return writeReadings(readings, query)
}

// buildQuery translates the CLI flags into a chart query
func buildQuery() (scraper.Query, error) {
	var period string
	switch fetchPeriod {
	case "day":
		period = scraper.PeriodDay
	case "month":
		period = scraper.PeriodMonth
	case "year":
		period = scraper.PeriodYear
	default:
		return scraper.Query{}, fmt.Errorf("invalid period: %s (available: day, month, year)", fetchPeriod)
	}

	switch fetchGranularity {
	case "", scraper.GranularityDay, scraper.GranularityHour:
	default:
		return scraper.Query{}, fmt.Errorf("invalid granularity: %s (available: D, H)", fetchGranularity)
	}

	return scraper.Query{
		Period:      period,
		Year:        fetchYear,
		Month:       fetchMonth,
		Day:         fetchDay,
		Granularity: fetchGranularity,
	}, nil
}

// storeReadings inserts the readings into the local database.
// Duplicates are skipped by the UNIQUE constraint.
func storeReadings(readings []models.Reading, query scraper.Query) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	granularity := effectiveGranularity(query)
	for i := range readings {
		if err := db.InsertReading(&readings[i], granularity); err != nil {
			return fmt.Errorf("storing readings: %w", err)
		}
	}

	fmt.Printf("✓ Stored %d readings (duplicates automatically skipped)\n", len(readings))
	return nil
}

// effectiveGranularity resolves the granularity the portal actually
// used for a query: hourly for days, daily for months, monthly points
// for a full year
func effectiveGranularity(q scraper.Query) string {
	if q.Granularity != "" {
		return q.Granularity
	}
	switch q.Period {
	case scraper.PeriodDay:
		return scraper.GranularityHour
	case scraper.PeriodYear:
		return "M"
	default:
		return scraper.GranularityDay
	}
}

// writeReadings renders the readings as pretty-printed JSON to the
// requested file, or to stdout when the outfile is "-"
func writeReadings(readings []models.Reading, query scraper.Query) error {
	data, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding readings: %w", err)
	}

	outfile := fetchOutfile
	if outfile == "" {
		outfile = defaultOutfileName(query, time.Now())
	}

	if outfile == "-" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(outfile, data, 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	fmt.Printf("✓ Data saved to %s\n", outfile)
	return nil
}

// defaultOutfileName builds the auto-generated output filename for a
// query, filling unspecified date components from the current date
func defaultOutfileName(q scraper.Query, now time.Time) string {
	year := q.Year
	if year == 0 {
		year = now.Year()
	}

	switch q.Period {
	case scraper.PeriodYear:
		return fmt.Sprintf("st_%d.json", year)
	case scraper.PeriodDay:
		month := q.Month
		if month == 0 {
			month = int(now.Month())
		}
		day := q.Day
		if day == 0 {
			day = now.Day()
		}
		return fmt.Sprintf("st_%d%02d%02d.json", year, month, day)
	default:
		month := q.Month
		if month == 0 {
			month = int(now.Month())
		}
		return fmt.Sprintf("st_%d%02d.json", year, month)
	}
}
