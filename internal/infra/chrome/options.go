package chrome

import (
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"

	"pdfstudio/internal/config"
)

// AllocatorOptions builds the exec allocator flags for a browser using profileDir.
// Serverless deployments run the bundled binary in single-process mode; local
// deployments use chrome_path or whatever chromedp finds on PATH.
func AllocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		chromedp.WindowSize(cfg.PDF.ViewportWidth, cfg.PDF.ViewportHeight),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if cfg.PDF.Serverless {
		opts = append(opts,
			chromedp.ExecPath(cfg.PDF.BundledChromePath),
			chromedp.Flag("single-process", true),
			chromedp.Flag("no-zygote", true),
			chromedp.NoSandbox,
		)
		return opts
	}

	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// createProfileDir makes a throwaway Chrome profile under user_data_dir, or
// the system temp dir when unset.
func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base == "" {
		base = os.TempDir()
	} else if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(filepath.Clean(base), "chromedata-*")
}
