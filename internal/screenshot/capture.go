package screenshot

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// MaxPageSize is the largest document, in bytes, that will be captured.
const MaxPageSize = 50 << 20

// Config configures a Capturer.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an existing browser.
	// Empty launches a local headless Chrome.
	RemoteURL string
	Width     int
	Height    int
	Timeout   time.Duration
	// Quality is the JPEG quality.
	Quality int
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Quality <= 0 {
		c.Quality = 80
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// blocked lists the resource types aborted during capture.
var blocked = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeMedia: true,
	proto.NetworkResourceTypeFont:  true,
	proto.NetworkResourceTypeOther: true,
}

// Capturer takes screenshots with a headless browser. The browser is
// started on first use and shared by later captures.
type Capturer struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewCapturer returns a capturer; call Close to release the browser.
func NewCapturer(cfg Config) *Capturer {
	cfg.defaults()
	return &Capturer{cfg: cfg, now: time.Now}
}

func (c *Capturer) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}
	wsURL := c.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).
			Set("disable-gpu").
			Set("disable-dev-shm-usage").
			Set("window-size", fmt.Sprintf("%d,%d", c.cfg.Width, c.cfg.Height))
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("screenshot: launch: %w", err)
		}
		wsURL = u
		c.lnch = l
		c.cfg.Logger.Info("screenshot: launched local chrome", "url", wsURL)
	}
	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("screenshot: connect: %w", err)
	}
	c.browser = b
	return b, nil
}

// Close shuts the browser down.
func (c *Capturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.browser != nil {
		err = c.browser.Close()
		c.browser = nil
	}
	if c.lnch != nil {
		c.lnch.Cleanup()
		c.lnch = nil
	}
	return err
}

// Capture loads target and returns a full-page JPEG of it. Failures are
// returned as *Error.
func (c *Capturer) Capture(ctx context.Context, target string) (Result, error) {
	if target == "" {
		return Result{}, Classify(ErrMissingURL)
	}
	res, err := c.capture(ctx, target)
	if err != nil {
		ce := Classify(err)
		c.cfg.Logger.Warn("screenshot: capture failed", "url", target, "status", ce.Status, "error", err)
		return Result{}, ce
	}
	return res, nil
}

func (c *Capturer) capture(ctx context.Context, target string) (Result, error) {
	b, err := c.connect()
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	page, err := stealth.Page(b)
	if err != nil {
		return Result{}, fmt.Errorf("screenshot: create tab: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.cfg.Width,
		Height:            c.cfg.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return Result{}, fmt.Errorf("screenshot: viewport: %w", err)
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	defer router.Stop()

	var status atomic.Int64
	waitDoc := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status.Store(int64(e.Response.Status))
		return true
	})
	go waitDoc()

	idle := page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := page.Navigate(target); err != nil {
		return Result{}, err
	}
	if err := page.WaitLoad(); err != nil {
		return Result{}, err
	}
	idle()

	code := status.Load()
	if code == 0 {
		return Result{}, errLoadFailed
	}
	if code >= 400 {
		return Result{}, fmt.Errorf("page returned status code %d", code)
	}

	html, err := page.HTML()
	if err != nil {
		return Result{}, err
	}
	if len(html) > MaxPageSize {
		return Result{}, errPageTooLarge
	}

	q := c.cfg.Quality
	shot, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &q,
	})
	if err != nil {
		return Result{}, fmt.Errorf("screenshot: capture: %w", err)
	}

	dims, err := page.Eval(`() => ({
		width: document.documentElement.scrollWidth,
		height: document.documentElement.scrollHeight,
	})`)
	if err != nil {
		return Result{}, fmt.Errorf("screenshot: dimensions: %w", err)
	}

	c.cfg.Logger.Info("screenshot: captured", "url", target, "bytes", len(shot))
	return Result{
		Success:    true,
		Screenshot: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(shot),
		Metadata: &Metadata{
			URL:       target,
			Timestamp: c.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Dimensions: Dimensions{
				Width:  dims.Value.Get("width").Int(),
				Height: dims.Value.Get("height").Int(),
			},
		},
	}, nil
}
