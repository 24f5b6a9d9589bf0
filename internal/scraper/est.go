package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/estscraper/estscraper/internal/config"
	"github.com/estscraper/estscraper/pkg/models"
)

const (
	chartSelector = `div.chart`

	loginFormTimeout    = 20 * time.Second
	chartTimeout        = 20 * time.Second
	consentClickTimeout = 3 * time.Second
	pageSettleDelay     = 3 * time.Second
	navigationDelay     = 5 * time.Second
)

// Diagnostic dump files written to the working directory on failure
const (
	loginTimeoutDump = "login_timeout.html"
	chartEmptyDump   = "chart_empty.html"
	chartMissingDump = "chart_not_found.html"
)

// ESTScraper owns one browser session against the e-st.lv portal. The
// session is created lazily on the first fetch and must be released
// with Close on every exit path.
type ESTScraper struct {
	username string
	password string
	objectID string
	meterID  string
	cookies  []config.Cookie
	visible  bool

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	authenticated bool
}

// NewESTScraper creates a scraper for the given account and meter.
// Saved cookies, if any, are seeded into the session before login.
func NewESTScraper(creds *config.Credentials, cookies []config.Cookie, visible bool) *ESTScraper {
	return &ESTScraper{
		username: creds.Username,
		password: creds.Password,
		objectID: creds.ObjectID,
		meterID:  creds.MeterID,
		cookies:  cookies,
		visible:  visible,
	}
}

// startBrowser lazily launches Chrome with the stealth configuration
func (s *ESTScraper) startBrowser(ctx context.Context) error {
	if s.browserCtx != nil {
		return nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(!s.visible)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser, surfacing launch
	// failures here instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("starting browser: %w", err)
	}

	if err := injectStealth(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return err
	}

	if err := SetCookies(browserCtx, s.cookies); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("seeding saved cookies: %w", err)
	}

	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.allocCancel = allocCancel
	return nil
}

// Close tears down the browser session. Safe to call more than once.
func (s *ESTScraper) Close() {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.browserCtx = nil
	s.authenticated = false
}

// Login opens the authentication page, dismisses the cookie consent
// banner if present, and submits the login form. Success means no
// error was raised; the portal gives no stronger signal.
func (s *ESTScraper) Login(ctx context.Context) error {
	if err := s.startBrowser(ctx); err != nil {
		return err
	}

	fmt.Printf("Opening login page: %s\n", loginPageURL)
	if err := chromedp.Run(s.browserCtx,
		chromedp.Navigate(loginPageURL),
		chromedp.Sleep(pageSettleDelay),
	); err != nil {
		return fmt.Errorf("navigating to login page: %w", err)
	}

	s.dismissCookieBanner()

	// If the form never appears the WAF has most likely flagged the
	// session. Keep the page source for inspection and bail out.
	waitCtx, cancel := context.WithTimeout(s.browserCtx, loginFormTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(`input[name="login"]`, chromedp.ByQuery),
	); err != nil {
		fmt.Println("ERROR: Login form not found - possible bot detection")
		dumpPage(s.browserCtx, loginTimeoutDump)
		return fmt.Errorf("login form not found: %w", err)
	}

	fmt.Println("Filling login form...")
	if err := chromedp.Run(s.browserCtx,
		chromedp.SendKeys(`input[name="login"]`, s.username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, s.password, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("filling login form: %w", err)
	}

	if err := s.submitLoginForm(); err != nil {
		return err
	}

	if err := chromedp.Run(s.browserCtx, chromedp.Sleep(navigationDelay)); err != nil {
		return fmt.Errorf("waiting for login to settle: %w", err)
	}

	var currentURL string
	if err := chromedp.Run(s.browserCtx, chromedp.Location(&currentURL)); err == nil {
		fmt.Printf("Current URL after login: %s\n", currentURL)
	}
	fmt.Println("✓ Login submitted, session should be active")
	s.authenticated = true
	return nil
}

// submitLoginForm clicks the submit control, falling back to a JS
// click when an overlay intercepts the pointer event
func (s *ESTScraper) submitLoginForm() error {
	submitSelector := `button[type="submit"], input[type="submit"]`

	err := chromedp.Run(s.browserCtx, chromedp.Click(submitSelector, chromedp.ByQuery))
	if err == nil {
		return nil
	}

	fmt.Println("Using JavaScript click...")
	var clicked bool
	if err := chromedp.Run(s.browserCtx,
		chromedp.Evaluate(fmt.Sprintf(`
			(() => {
				const btn = document.querySelector('%s');
				if (!btn) return false;
				btn.click();
				return true;
			})()
		`, submitSelector), &clicked),
	); err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}
	if !clicked {
		return fmt.Errorf("submitting login form: no submit control found")
	}
	return nil
}

// dismissCookieBanner tries each consent locator with a short timeout
// and stops at the first successful click
func (s *ESTScraper) dismissCookieBanner() {
	fmt.Println("Checking for cookie consent banner...")
	for _, loc := range cookieConsentLocators {
		clickCtx, cancel := context.WithTimeout(s.browserCtx, consentClickTimeout)
		err := chromedp.Run(clickCtx,
			chromedp.WaitVisible(loc.value, loc.queryOption()),
			chromedp.Click(loc.value, loc.queryOption()),
		)
		cancel()
		if err == nil {
			fmt.Println("✓ Accepted cookies")
			chromedp.Run(s.browserCtx, chromedp.Sleep(2*time.Second))
			return
		}
	}
	fmt.Println("No cookie banner or already accepted")
}

// navigate loads a page and waits for it to settle
func (s *ESTScraper) navigate(target string) error {
	if err := chromedp.Run(s.browserCtx,
		chromedp.Navigate(target),
		chromedp.Sleep(navigationDelay),
	); err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}
	return nil
}

// onLoginPage reports whether the session was bounced back to the
// authentication page
func (s *ESTScraper) onLoginPage() (bool, error) {
	var currentURL string
	if err := chromedp.Run(s.browserCtx, chromedp.Location(&currentURL)); err != nil {
		return false, fmt.Errorf("reading current URL: %w", err)
	}
	lower := strings.ToLower(currentURL)
	return strings.Contains(lower, "authentification") || strings.Contains(lower, "login"), nil
}

// ensureChartPage drives navigation to the chart page, authenticating
// as needed. An authenticated session (seeded cookies or an earlier
// login) navigates straight to the target; otherwise a login comes
// first. If the portal bounces the navigation back to the login page,
// re-authenticate once and retry once. A second bounce is not checked
// again and surfaces at the caller's chart wait instead.
func ensureChartPage(ctx context.Context, target string, authenticated bool,
	navigate func(string) error, onLoginPage func() (bool, error), login func(context.Context) error) error {

	if !authenticated {
		if err := login(ctx); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	if err := navigate(target); err != nil {
		return err
	}

	bounced, err := onLoginPage()
	if err != nil {
		return err
	}
	if !bounced {
		return nil
	}

	fmt.Println("⚠ Redirected back to login page, attempting re-login...")
	if err := login(ctx); err != nil {
		return fmt.Errorf("re-login failed: %w", err)
	}
	return navigate(target)
}

// Fetch retrieves and parses the chart payload for the given query.
// Saved cookies let the session go straight to the chart page; without
// them a login happens lazily on first use. A bounce back to the login
// page is recovered once via re-login and a single retry.
func (s *ESTScraper) Fetch(ctx context.Context, q Query) (*ChartPayload, error) {
	authenticated := s.authenticated || len(s.cookies) > 0
	if err := s.startBrowser(ctx); err != nil {
		return nil, err
	}

	target := DataURL(s.objectID, s.meterID, q)
	fmt.Printf("Fetching data from: %s\n", target)
	if err := ensureChartPage(ctx, target, authenticated, s.navigate, s.onLoginPage, s.Login); err != nil {
		return nil, err
	}

	fmt.Println("Waiting for chart to load...")
	waitCtx, cancel := context.WithTimeout(s.browserCtx, chartTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(chartSelector, chromedp.ByQuery)); err != nil {
		fmt.Println("ERROR: Chart not found on page")
		dumpPage(s.browserCtx, chartMissingDump)
		return nil, fmt.Errorf("chart element not found: %w", err)
	}

	var raw string
	var ok bool
	if err := chromedp.Run(s.browserCtx,
		chromedp.AttributeValue(chartSelector, "data-values", &raw, &ok, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("reading chart data attribute: %w", err)
	}
	if !ok || raw == "" {
		fmt.Println("ERROR: Chart data-values attribute is empty")
		dumpPage(s.browserCtx, chartEmptyDump)
		return nil, fmt.Errorf("chart data not found")
	}

	var payload ChartPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parsing chart data: %w", err)
	}

	fmt.Println("✓ Chart data found")
	return &payload, nil
}

// FetchReadings fetches the chart payload for q and reshapes it into
// normalized readings
func (s *ESTScraper) FetchReadings(ctx context.Context, q Query, neto bool) ([]models.Reading, error) {
	payload, err := s.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return FormatReadings(payload, neto), nil
}

// SessionCookies returns the cookies of the live session so they can
// be saved for reuse. The session must have been started.
func (s *ESTScraper) SessionCookies() ([]config.Cookie, error) {
	if s.browserCtx == nil {
		return nil, fmt.Errorf("no active browser session")
	}
	return ExtractCookies(s.browserCtx)
}
