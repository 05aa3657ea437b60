package chrome

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfstudio/internal/config"
)

func chromeConfig(t *testing.T, slots int) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.PDF.ChromePoolSize = slots
	cfg.PDF.UserDataDir = t.TempDir()
	cfg.PDF.TimeoutSecs = 1
	return cfg
}

// slotPool builds a pool with free slots but no browser process.
func slotPool(t *testing.T, slots int) *Pool {
	t.Helper()
	p := &Pool{
		cfg:        chromeConfig(t, slots),
		sem:        make(chan struct{}, slots),
		browserCtx: context.Background(),
		profileDir: t.TempDir(),
	}
	for i := 0; i < slots; i++ {
		p.sem <- struct{}{}
	}
	return p
}

func TestCreateProfileDir(t *testing.T) {
	cfg := chromeConfig(t, 1)
	dir, err := createProfileDir(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.PDF.UserDataDir, filepath.Dir(dir))

	cfg.PDF.UserDataDir = ""
	tmp, err := createProfileDir(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tmp) })
	assert.DirExists(t, tmp)

	cfg.PDF.UserDataDir = "/dev/null/profiles"
	_, err = createProfileDir(cfg)
	assert.Error(t, err)
}

func TestPool_SlotsAreLeasedAndReturned(t *testing.T) {
	p := slotPool(t, 2)

	first, err := p.Acquire(context.Background())
	require.NoError(t, err)
	second, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Enabled: true, Capacity: 2, Idle: 0, InUse: 2, PoolSizeConf: 2, ProfileDir: p.profileDir, TimeoutSecs: 3}, p.Stats(3))

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a full pool blocks until the caller gives up")

	p.Release(first, errors.New("print failed"))
	p.Release(second, nil)
	assert.Equal(t, 2, p.Stats(3).Idle)

	p.Release(nil, nil)
	assert.Equal(t, 2, p.Stats(3).Idle, "extra releases do not grow the pool")
}

func TestPool_AcquireHonoursCanceledContext(t *testing.T) {
	p := &Pool{sem: make(chan struct{}, 1), browserCtx: context.Background()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool_CloseIsIdempotentAndFinal(t *testing.T) {
	p := slotPool(t, 1)
	profile := p.profileDir

	p.Close()
	p.Close()

	assert.False(t, p.Stats(1).Enabled)
	assert.NoDirExists(t, profile)
	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.ErrorIs(t, p.Restart(), ErrPoolClosed)

	var zero Pool
	zero.Close()
	assert.False(t, zero.Stats(1).Enabled)
}

func TestPool_FailedRestartLeavesNoBrowser(t *testing.T) {
	p := slotPool(t, 1)
	p.cfg.PDF.ChromePath = "/definitely/missing/chrome"
	old := p.profileDir

	require.Error(t, p.Restart())
	t.Cleanup(p.Close)
	assert.NoDirExists(t, old)
	assert.Empty(t, p.Stats(1).ProfileDir, "the failed profile is removed too")
	assert.Zero(t, p.Stats(1).Restarts)

	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrBrowserNotRunning)
	assert.True(t, IsSessionInterrupted(err))
	assert.Equal(t, 1, p.Stats(1).Idle, "the slot is handed back")
}

func TestNewPool_Failures(t *testing.T) {
	_, err := NewPool(chromeConfig(t, 0))
	assert.ErrorIs(t, err, ErrPoolDisabled)

	for _, bin := range []string{"/bin/true", "/definitely/missing/chrome"} {
		cfg := chromeConfig(t, 2)
		cfg.PDF.ChromePath = bin
		_, err := NewPool(cfg)
		require.Error(t, err, bin)
		assert.Contains(t, err.Error(), "warmup")
		entries, _ := os.ReadDir(cfg.PDF.UserDataDir)
		assert.Empty(t, entries, "%s: profile removed after failed warmup", bin)
	}
}

func TestWarmup_TimesOut(t *testing.T) {
	// Stands in for a browser that never prints its DevTools endpoint.
	hang := filepath.Join(t.TempDir(), "hanging-chrome")
	require.NoError(t, os.WriteFile(hang, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755))

	alloc, allocCancel := chromedp.NewExecAllocator(context.Background(), chromedp.ExecPath(hang))
	defer allocCancel()
	browserCtx, stop := chromedp.NewContext(alloc)
	defer stop()

	start := time.Now()
	err := warmup(browserCtx, 100*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// installedChrome returns a Chrome or Chromium binary, or skips the test.
func installedChrome(t *testing.T) string {
	t.Helper()
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if bin, err := exec.LookPath(name); err == nil {
			return bin
		}
	}
	t.Skip("no chrome binary installed")
	return ""
}

func TestPool_TabsShareOneBrowser(t *testing.T) {
	cfg := chromeConfig(t, 2)
	cfg.PDF.ChromePath = installedChrome(t)
	cfg.PDF.ChromeNoSandbox = true
	cfg.PDF.TimeoutSecs = 30

	p, err := NewPool(cfg)
	require.NoError(t, err)
	defer p.Close()

	browser := chromedp.FromContext(p.browserCtx).Browser
	require.NotNil(t, browser, "the browser runs before any tab is leased")

	first, err := p.Acquire(context.Background())
	require.NoError(t, err)
	second, err := p.Acquire(context.Background())
	require.NoError(t, err)

	for _, tab := range []*Tab{first, second} {
		require.NoError(t, chromedp.Run(tab.Ctx, chromedp.Navigate("about:blank")))
		assert.Same(t, browser, chromedp.FromContext(tab.Ctx).Browser)
	}
	p.Release(first, nil)
	p.Release(second, nil)

	third, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, chromedp.Run(third.Ctx, chromedp.Navigate("about:blank")))
	assert.Same(t, browser, chromedp.FromContext(third.Ctx).Browser, "released tabs leave the browser running")
	p.Release(third, nil)

	require.NoError(t, p.Restart())
	restarted := chromedp.FromContext(p.browserCtx).Browser
	require.NotNil(t, restarted)
	assert.NotSame(t, browser, restarted)
}

func TestWithSession_RemovesProfile(t *testing.T) {
	cfg := chromeConfig(t, 0)
	cfg.PDF.ChromePath = "/definitely/missing/chrome"

	boom := errors.New("layout failed")
	var during int
	err := WithSession(context.Background(), cfg, func(ctx context.Context) error {
		entries, _ := os.ReadDir(cfg.PDF.UserDataDir)
		during = len(entries)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, during)
	entries, _ := os.ReadDir(cfg.PDF.UserDataDir)
	assert.Empty(t, entries)
}

func TestAllocatorOptions(t *testing.T) {
	cfg := chromeConfig(t, 0)
	cfg.PDF.ChromePath = "/usr/bin/chromium"
	cfg.PDF.ChromeNoSandbox = true
	local := AllocatorOptions(cfg, t.TempDir())

	cfg.PDF.Serverless = true
	serverless := AllocatorOptions(cfg, t.TempDir())

	assert.Greater(t, len(local), len(chromedp.DefaultExecAllocatorOptions))
	assert.Greater(t, len(serverless), len(local))
}

func TestIsSessionInterrupted(t *testing.T) {
	interrupted := []error{
		context.Canceled,
		context.DeadlineExceeded,
		errors.New("target closed"),
		errors.New("websocket: close 1006 (abnormal closure)"),
	}
	for _, err := range interrupted {
		assert.True(t, IsSessionInterrupted(err), "%v", err)
	}
	assert.False(t, IsSessionInterrupted(nil))
	assert.False(t, IsSessionInterrupted(errors.New("invalid margin")))
}
