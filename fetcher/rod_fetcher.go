package fetcher

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodFetcher implements the Fetcher interface using rod (headless browser).
// It is meant for sources whose cards are rendered client-side.
type RodFetcher struct {
	browser   *rod.Browser
	userAgent string
	timeout   time.Duration
}

// NewRodFetcher launches a headless browser. userDataDir keeps the profile on
// disk instead of memory.
func NewRodFetcher(userDataDir, userAgent string, timeout time.Duration) (*RodFetcher, error) {
	if userDataDir != "" {
		if err := os.MkdirAll(userDataDir, 0755); err != nil {
			log.Printf("Warning: Failed to create browser data directory %s: %v\n", userDataDir, err)
			userDataDir = ""
		}
	}

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("mute-audio").
		Set("no-zygote")
	if userDataDir != "" {
		l = l.UserDataDir(userDataDir)
	}

	// Prefer a system Chrome/Chromium over downloading one
	for _, path := range []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	} {
		if _, err := os.Stat(path); err == nil {
			l = l.Bin(path)
			break
		}
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &RodFetcher{
		browser:   browser,
		userAgent: userAgent,
		timeout:   timeout,
	}, nil
}

// Close closes the browser
func (rf *RodFetcher) Close() error {
	if rf.browser != nil {
		return rf.browser.Close()
	}
	return nil
}

// Fetch implements the Fetcher interface
func (rf *RodFetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, err := rf.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if rf.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rf.timeout)
		defer cancel()
	}
	page = page.Context(ctx)

	if rf.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rf.userAgent}); err != nil {
			log.Printf("Warning: Failed to set user agent: %v\n", err)
		}
	}

	// Subscribe before navigating so the document response is not missed
	var status int
	waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	waitResponse()
	if err := checkStatus(status, url); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}

	// Give client-side rendering a chance to settle
	if err := page.WaitStable(500 * time.Millisecond); err != nil {
		log.Printf("Warning: Page %s did not stabilize, continuing anyway: %v\n", url, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}

	log.Printf("Rendered %s (%d bytes)\n", url, len(html))
	return html, nil
}

// checkStatus turns a document status other than 200 into ErrUnexpectedStatus.
// Zero means no response was seen before the page context ended.
func checkStatus(status int, url string) error {
	switch status {
	case http.StatusOK:
		return nil
	case 0:
		return fmt.Errorf("no response received for %s", url)
	default:
		return fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, status, url)
	}
}
