package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"pdfstudio/internal/config"
	"pdfstudio/internal/domain"
	"pdfstudio/internal/infra/chrome"
	"pdfstudio/internal/infra/logging"
)

const (
	acquireTimeout = 5 * time.Second
	readyInterval  = 50 * time.Millisecond
)

// readyScript is true once the document, every image and every web font has loaded.
const readyScript = `document.readyState === 'complete' &&
	Array.from(document.images).every(function (img) { return img.complete; }) &&
	(!document.fonts || document.fonts.status === 'loaded')`

// ChromeRenderer prints the HTML form of the document with headless Chrome.
// With chrome_pool_size > 0 tabs come from a shared browser; otherwise every
// render starts and tears down its own browser.
type ChromeRenderer struct {
	cfg config.Config
	now Clock

	poolMu sync.Mutex
	pool   *chrome.Pool
}

// NewChromeRenderer creates a renderer. The pool, if any, starts lazily.
func NewChromeRenderer(cfg config.Config) *ChromeRenderer {
	return &ChromeRenderer{cfg: cfg, now: time.Now}
}

func (r *ChromeRenderer) Name() string { return config.EngineChrome }

// Pool returns the shared tab pool, creating it on first use. A nil pool with
// a nil error means pooling is disabled.
func (r *ChromeRenderer) Pool() (*chrome.Pool, error) {
	r.poolMu.Lock()
	defer r.poolMu.Unlock()

	if r.cfg.PDF.ChromePoolSize <= 0 {
		return nil, nil
	}
	if r.pool != nil {
		return r.pool, nil
	}
	pool, err := chrome.NewPool(r.cfg)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r.pool, nil
}

// Close shuts down the pooled browser, if one was started.
func (r *ChromeRenderer) Close() {
	r.poolMu.Lock()
	defer r.poolMu.Unlock()
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
}

func (r *ChromeRenderer) Render(ctx context.Context, req domain.GenerationRequest) ([]byte, error) {
	tree, err := BuildTree(req, r.now())
	if err != nil {
		return nil, err
	}
	html, err := RenderHTML(tree)
	if err != nil {
		return nil, err
	}

	pool, err := r.Pool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		var pdfBuf []byte
		err := chrome.WithSession(ctx, r.cfg, func(tabCtx context.Context) error {
			var err error
			pdfBuf, err = r.print(tabCtx, html)
			return err
		})
		return pdfBuf, err
	}

	pdfBuf, renderErr := r.renderInPool(ctx, pool, html)
	if renderErr != nil && chrome.IsSessionInterrupted(renderErr) && ctx.Err() == nil &&
		!errors.Is(renderErr, context.DeadlineExceeded) {
		logging.Warn("Chrome session interrupted; restarting pool and retrying once", "error", renderErr)
		_ = pool.Restart()
		return r.renderInPool(ctx, pool, html)
	}
	return pdfBuf, renderErr
}

func (r *ChromeRenderer) renderInPool(ctx context.Context, pool *chrome.Pool, html string) (pdfBuf []byte, err error) {
	acquireCtx, acquireCancel := context.WithTimeout(ctx, acquireTimeout)
	defer acquireCancel()

	tab, err := pool.Acquire(acquireCtx)
	if err != nil {
		return nil, err
	}
	defer func() { pool.Release(tab, err) }()

	var (
		tabCtx context.Context
		cancel context.CancelFunc
	)
	if timeout := r.cfg.Timeout(); timeout > 0 {
		tabCtx, cancel = context.WithTimeout(tab.Ctx, timeout)
	} else {
		tabCtx, cancel = context.WithCancel(tab.Ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return r.print(tabCtx, html)
}

// print loads html into the tab, waits until it is fully rendered and exports it.
func (r *ChromeRenderer) print(ctx context.Context, html string) ([]byte, error) {
	paper, _ := r.cfg.Paper()
	margin := r.cfg.PDF.Margin

	var pdfBuf []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(r.cfg.PDF.ViewportWidth), int64(r.cfg.PDF.ViewportHeight)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return waitForRenderReady(ctx, readyInterval)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paper.Width).
				WithPaperHeight(paper.Height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}

// waitForRenderReady polls the page until readyScript holds or ctx ends.
func waitForRenderReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var ready bool
		if err := chromedp.Evaluate(readyScript, &ready).Do(ctx); err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
