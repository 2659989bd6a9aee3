package rendering

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/chromedp/chromedp"
)

// ScreenshotOptions sizes the headless viewport.
type ScreenshotOptions struct {
	Width   int64
	Height  int64
	Timeout time.Duration
}

// DefaultScreenshotOptions is a portrait 1080 wide viewport.
func DefaultScreenshotOptions() ScreenshotOptions {
	return ScreenshotOptions{Width: 1080, Height: 1350, Timeout: 30 * time.Second}
}

// Screenshot renders page in headless Chrome and returns a full-page PNG.
// Requires Chrome/Chromium to be installed on the system.
func Screenshot(ctx context.Context, page string, opts ScreenshotOptions) ([]byte, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultScreenshotOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultScreenshotOptions().Timeout
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	var png []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(opts.Width, opts.Height),
		chromedp.Navigate(pageURL(page)),
		chromedp.WaitReady("body"),
		// Quality 100 selects PNG.
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return nil, &RenderError{Message: "browser screenshot failed", Cause: err}
	}
	return png, nil
}

func pageURL(page string) string {
	return "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(page))
}
