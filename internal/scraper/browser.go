package scraper

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/estscraper/estscraper/internal/config"
)

const stealthUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// allocatorOptions returns the Chrome launch flags for a scraping
// session. The portal sits behind a WAF that flags headless automation,
// so the anti-fingerprinting flags are applied uniformly.
func allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("no-sandbox", true),            // Required for running as root on Linux
		chromedp.Flag("disable-gpu", true),           // Recommended for headless Linux
		chromedp.Flag("disable-dev-shm-usage", true), // Avoid /dev/shm issues on Linux
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.UserAgent(stealthUserAgent),
	)
}

// stealthScripts run on every new document before page scripts,
// hiding the usual webdriver fingerprints.
var stealthScripts = []string{
	`Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`,
	`Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]})`,
	`Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en', 'lv']})`,
}

// injectStealth installs the anti-fingerprinting scripts in the browser context
func injectStealth(ctx context.Context) error {
	for _, script := range stealthScripts {
		if err := chromedp.Run(ctx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
				return err
			}),
		); err != nil {
			return fmt.Errorf("installing stealth script: %w", err)
		}
	}
	return nil
}

// locator identifies an element by CSS query or XPath, independent of
// any one selector API
type locator struct {
	kind  locatorKind
	value string
}

type locatorKind int

const (
	byCSS locatorKind = iota
	byXPath
)

func (l locator) queryOption() chromedp.QueryOption {
	if l.kind == byXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// cookieConsentLocators are tried in order until one click succeeds.
// The portal has cycled through several consent widgets over time;
// total absence of the banner is fine.
var cookieConsentLocators = []locator{
	{byCSS, `button#accept`},
	{byCSS, `button[data-action='consent'][data-action-type='accept']`},
	{byCSS, `button.uc-accept-button`},
	{byCSS, `button[aria-label*='Piekrītu']`},
	{byXPath, `//button[contains(text(), 'Piekrītu')]`},
	{byXPath, `//button[contains(@aria-label, 'Piekrītu')]`},
}

// ExtractCookies extracts all cookies from the current browser context
func ExtractCookies(ctx context.Context) ([]config.Cookie, error) {
	var cookies []*network.Cookie

	if err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("getting cookies: %w", err)
	}

	result := make([]config.Cookie, 0, len(cookies))
	for _, c := range cookies {
		result = append(result, config.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}

	return result, nil
}

// cookieParams converts a saved cookie back into CDP set-cookie
// parameters. Session cookies carry no expiry and unset SameSite
// stays unset rather than defaulting.
func cookieParams(c config.Cookie) *network.SetCookieParams {
	p := network.SetCookie(c.Name, c.Value).
		WithDomain(c.Domain).
		WithPath(c.Path).
		WithHTTPOnly(c.HTTPOnly).
		WithSecure(c.Secure)

	if c.Expires > 0 {
		expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
		p = p.WithExpires(&expires)
	}
	if c.SameSite != "" {
		p = p.WithSameSite(network.CookieSameSite(c.SameSite))
	}
	return p
}

// SetCookies seeds saved cookies into the browser context
func SetCookies(ctx context.Context, cookies []config.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	for _, c := range cookies {
		expr := cookieParams(c)

		if err := chromedp.Run(ctx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				return expr.Do(ctx)
			}),
		); err != nil {
			return fmt.Errorf("setting cookie %s: %w", c.Name, err)
		}
	}

	return nil
}

// dumpPage writes the current page markup to path for manual
// inspection after a scrape failure. Best effort.
func dumpPage(ctx context.Context, path string) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		fmt.Printf("⚠ Could not capture page source: %v\n", err)
		return
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		fmt.Printf("⚠ Could not write %s: %v\n", path, err)
		return
	}
	fmt.Printf("Page source saved to %s\n", path)
}
