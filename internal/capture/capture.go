// Package capture renders a local HTML file to a PNG in a headless browser.
package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"giftboard/internal/config"
)

// Capturer writes an image of the page at htmlPath to outPath.
type Capturer interface {
	Capture(ctx context.Context, htmlPath, outPath string) error
}

// Browser captures with a Chromium launched through go-rod.
type Browser struct {
	Width       int
	Height      int
	SettleDelay time.Duration
	Zoom        float64
	Headless    bool
	// Bin overrides the browser executable; empty lets rod find or download one.
	Bin string
}

func NewBrowser(cfg config.RenderConfig) *Browser {
	return &Browser{
		Width:       cfg.ViewportWidth,
		Height:      cfg.ViewportHeight,
		SettleDelay: cfg.SettleDelay,
		Zoom:        cfg.Zoom,
		Headless:    cfg.Headless,
		Bin:         os.Getenv("GIFTBOARD_BROWSER_BIN"),
	}
}

// FileURL turns a local path into a file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (b *Browser) Capture(ctx context.Context, htmlPath, outPath string) error {
	target, err := FileURL(htmlPath)
	if err != nil {
		return err
	}
	l := launcher.New().Headless(b.Headless)
	if b.Bin != "" {
		l = l.Bin(b.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.Width,
		Height:            b.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if err := page.Navigate(target); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	// Web fonts and iconify spans paint after load.
	select {
	case <-time.After(b.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if b.Zoom > 0 && b.Zoom != 1 {
		if _, err := page.Eval(`z => { document.body.style.zoom = z }`, b.Zoom); err != nil {
			return fmt.Errorf("apply zoom: %w", err)
		}
	}
	img, err := page.Screenshot(false, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, img, 0o644)
}
