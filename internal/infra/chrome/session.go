package chrome

import (
	"context"
	"fmt"
	"os"

	"github.com/chromedp/chromedp"

	"pdfstudio/internal/config"
)

// WithSession starts a dedicated browser, runs fn in its first tab and tears
// the browser down on every return path, including panics in fn. The tab
// context carries the configured render timeout.
func WithSession(ctx context.Context, cfg config.Config, fn func(tabCtx context.Context) error) error {
	dir, err := createProfileDir(cfg)
	if err != nil {
		return fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	defer os.RemoveAll(dir)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg, dir)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx := browserCtx
	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(browserCtx, timeout)
		defer cancel()
	}
	return fn(runCtx)
}
