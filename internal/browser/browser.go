// Package browser manages headless Chrome sessions used to fetch and render
// pages. Each crawl worker holds its own Session; the Manager caps how many
// sessions exist at once and owns the shared browser allocator.
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Config holds browser pool settings.
type Config struct {
	// Headless runs Chrome without a visible window.
	Headless bool
	// ProxyURL routes all sessions through a proxy when set.
	ProxyURL string
	// UserAgent is sent on every request.
	UserAgent string
	// PageLoadTimeout bounds a single navigation.
	PageLoadTimeout time.Duration
	// MaxSessions caps concurrently open sessions.
	MaxSessions int
}

// DefaultConfig returns sensible browser settings.
func DefaultConfig() *Config {
	return &Config{
		Headless:        true,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		PageLoadTimeout: 30 * time.Second,
		MaxSessions:     5,
	}
}

// Manager owns a Chrome exec allocator and hands out Sessions.
type Manager struct {
	config      *Config
	allocCtx    context.Context
	allocCancel context.CancelFunc
	slots       chan struct{}
}

// NewManager starts a browser allocator with the given config.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(config.UserAgent),
	)
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Manager{
		config:      config,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		slots:       make(chan struct{}, config.MaxSessions),
	}
}

// Acquire opens a new browser tab. It blocks while MaxSessions sessions are
// already open, until one is released or ctx is cancelled. The caller must
// Close the session when done.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for browser session: %w", ctx.Err())
	}

	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)

	// Spawning the tab eagerly surfaces launch failures here rather than on
	// the first navigation.
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-GB,en;q=0.9",
		}),
	); err != nil {
		tabCancel()
		<-m.slots
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	return &Session{
		ctx:     tabCtx,
		cancel:  tabCancel,
		timeout: m.config.PageLoadTimeout,
		release: func() { <-m.slots },
	}, nil
}

// Close shuts down the allocator and every remaining session.
func (m *Manager) Close() {
	m.allocCancel()
	log.Debug().Msg("Browser manager closed")
}

// Session is a single Chrome tab.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	release func()
}

// Navigate loads a URL and waits for the document to settle, with small
// randomised scroll and pause actions so traffic resembles a human visitor.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(time.Duration(500+rand.Intn(1000))*time.Millisecond),
		chromedp.Evaluate(`window.scrollTo({top: document.body.scrollHeight * 0.4, behavior: "smooth"})`, nil),
		chromedp.Sleep(time.Duration(300+rand.Intn(700))*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Content returns the full rendered HTML of the current document.
func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// BodyText returns the visible text of the current document.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var text string
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	return text, nil
}

// LinkHrefs returns the href of every anchor on the current document.
func (s *Session) LinkHrefs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	var hrefs []string
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`Array.from(document.querySelectorAll("a[href]")).map(a => a.getAttribute("href"))`, &hrefs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page links: %w", err)
	}
	return hrefs, nil
}

// Close releases the tab and its session slot.
func (s *Session) Close() {
	s.cancel()
	s.release()
}
