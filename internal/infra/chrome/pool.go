package chrome

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"pdfstudio/internal/config"
	"pdfstudio/internal/infra/logging"
)

// Pool shares one browser process between a fixed number of tabs. Tabs are
// handed out with Acquire and must be returned with Release.
type Pool struct {
	cfg config.Config

	mu          sync.Mutex
	sem         chan struct{}
	profileDir  string
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	closed      bool
	restarts    int
	lastRestart time.Time
}

// Tab is a browser tab leased from a Pool.
type Tab struct {
	Ctx    context.Context
	cancel context.CancelFunc
}

// Stats is a snapshot of pool usage.
type Stats struct {
	Enabled      bool      `json:"enabled"`
	Capacity     int       `json:"capacity"`
	Idle         int       `json:"idle"`
	InUse        int       `json:"in_use"`
	PoolSizeConf int       `json:"pool_size_conf"`
	ProfileDir   string    `json:"profile_dir"`
	TimeoutSecs  int       `json:"timeout_secs"`
	Restarts     int       `json:"restarts"`
	LastRestart  time.Time `json:"last_restart"`
}

// NewPool starts one browser process and prepares chrome_pool_size tab
// slots in it. It fails when the browser does not come up within the warmup
// timeout.
func NewPool(cfg config.Config) (*Pool, error) {
	size := cfg.PDF.ChromePoolSize
	if size <= 0 {
		return nil, ErrPoolDisabled
	}

	p := &Pool{cfg: cfg, sem: make(chan struct{}, size)}
	if err := p.start(); err != nil {
		return nil, err
	}
	for i := 0; i < size; i++ {
		p.sem <- struct{}{}
	}
	logging.Info("Chrome pool ready", "size", size, "profile_dir", p.profileDir)
	return p, nil
}

// start creates a fresh profile and launches the browser that every leased
// tab shares. Callers hold p.mu or own p exclusively.
func (p *Pool) start() error {
	dir, err := createProfileDir(p.cfg)
	if err != nil {
		return fmt.Errorf("cannot create chrome profile dir: %w", err)
	}
	p.profileDir = dir
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), AllocatorOptions(p.cfg, dir)...)
	p.browserCtx, p.browserStop = chromedp.NewContext(p.allocCtx)

	if err := warmup(p.browserCtx, warmupTimeout(p.cfg)); err != nil {
		p.stop()
		return fmt.Errorf("chrome pool init warmup: %w", err)
	}
	return nil
}

func warmupTimeout(cfg config.Config) time.Duration {
	if t := cfg.Timeout(); t > 0 {
		return t
	}
	return 30 * time.Second
}

// warmup runs the browser context once so the process exists before any tab
// is leased. The first Run binds the browser to browserCtx, so the timeout
// is enforced with a timer instead of a derived context; on timeout the
// caller tears the browser down.
func warmup(browserCtx context.Context, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(browserCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

// stop tears down the browser and removes its profile. Callers hold p.mu.
func (p *Pool) stop() {
	if p.browserStop != nil {
		p.browserStop()
		p.browserStop = nil
	}
	p.browserCtx = nil
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
		p.profileDir = ""
	}
}

// Acquire waits for a free slot and opens a new tab in the shared browser.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case <-p.sem:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.browserCtx == nil {
		p.sem <- struct{}{}
		return nil, ErrBrowserNotRunning
	}
	tabCtx, cancel := chromedp.NewContext(p.browserCtx)
	return &Tab{Ctx: tabCtx, cancel: cancel}, nil
}

// Release closes the tab and frees its slot. renderErr is logged when the tab
// failed so pool trouble shows up next to the render error.
func (p *Pool) Release(tab *Tab, renderErr error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	if renderErr != nil {
		logging.Debug("Chrome tab released after error", "error", renderErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.sem <- struct{}{}:
	default:
	}
}

// Restart replaces the browser process, keeping the slot count.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.stop()
	if err := p.start(); err != nil {
		return err
	}
	p.restarts++
	p.lastRestart = time.Now()
	logging.Warn("Chrome pool restarted", "restarts", p.restarts)
	return nil
}

// Close shuts the browser down. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stop()
}

// Stats reports capacity and usage.
func (p *Pool) Stats(timeoutSecs int) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	capacity := cap(p.sem)
	idle := len(p.sem)
	return Stats{
		Enabled:      !p.closed && p.sem != nil,
		Capacity:     capacity,
		Idle:         idle,
		InUse:        capacity - idle,
		PoolSizeConf: p.cfg.PDF.ChromePoolSize,
		ProfileDir:   p.profileDir,
		TimeoutSecs:  timeoutSecs,
		Restarts:     p.restarts,
		LastRestart:  p.lastRestart,
	}
}
