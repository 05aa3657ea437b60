package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PaperSize is a page size in inches, as expected by Chrome's PrintToPDF.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PostgresConfig holds the API token store connection. DSN wins over the
// individual fields when set.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// Engine names accepted by pdf.engine.
const (
	EngineChrome = "chrome"
	EngineFPDF   = "fpdf"
)

// Config is the application configuration loaded from YAML.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Limits struct {
		MaxRequestBytes int `yaml:"max_request_bytes"`
		MaxImages       int `yaml:"max_images"`
		MaxPDFBytes     int `yaml:"max_pdf_bytes"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
		RedisHost       string        `yaml:"redis_host"`
		RateLimitDB     int           `yaml:"redis_rate_db"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
		SessionDB       int           `yaml:"redis_session_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
		UserLimit         int           `yaml:"user_limit"`
		Interval          time.Duration `yaml:"interval"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Enabled             bool           `yaml:"enabled"`
		Postgres            PostgresConfig `yaml:"postgres"`
		TokenReloadInterval time.Duration  `yaml:"token_reload_interval"`
	} `yaml:"auth"`

	PDF struct {
		Engine            string               `yaml:"engine"`
		DefaultPaper      string               `yaml:"default_paper"`
		PaperSizes        map[string]PaperSize `yaml:"paper_sizes"`
		Margin            float64              `yaml:"margin"`
		ViewportWidth     int                  `yaml:"viewport_width"`
		ViewportHeight    int                  `yaml:"viewport_height"`
		TimeoutSecs       int                  `yaml:"timeout_secs"`
		ChromePath        string               `yaml:"chrome_path"`
		ChromeNoSandbox   bool                 `yaml:"chrome_no_sandbox"`
		ChromePoolSize    int                  `yaml:"chrome_pool_size"`
		UserDataDir       string               `yaml:"user_data_dir"`
		Serverless        bool                 `yaml:"serverless"`
		BundledChromePath string               `yaml:"bundled_chrome_path"`
	} `yaml:"pdf"`

	Viewer struct {
		DocumentTTL time.Duration `yaml:"document_ttl"`
	} `yaml:"viewer"`
}

// Timeout returns the render timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.PDF.TimeoutSecs) * time.Second
}

// Paper returns the configured default paper size. The second value is false
// when the default paper is missing from paper_sizes.
func (c Config) Paper() (PaperSize, bool) {
	p, ok := c.PDF.PaperSizes[strings.ToUpper(c.PDF.DefaultPaper)]
	return p, ok
}

// Default returns a configuration that runs locally without Redis or Postgres.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// Load reads the file named by CONFIG_PATH, falling back to config.yaml.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the configuration at path. It panics on
// unreadable files or invalid values; the process cannot serve without them.
func LoadFrom(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}
	cfg, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("config: %s: %v", path, err))
	}
	return cfg
}

// Parse decodes YAML, applies defaults and environment overrides, and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Limits.MaxRequestBytes == 0 {
		cfg.Limits.MaxRequestBytes = 20 * 1024 * 1024
	}
	if cfg.Limits.MaxImages == 0 {
		cfg.Limits.MaxImages = 20
	}
	if cfg.Limits.MaxPDFBytes == 0 {
		cfg.Limits.MaxPDFBytes = 50 * 1024 * 1024
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Cache.PDFCacheTTL == 0 {
		cfg.Cache.PDFCacheTTL = 10 * time.Minute
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.Auth.TokenReloadInterval == 0 {
		cfg.Auth.TokenReloadInterval = time.Minute
	}
	if cfg.PDF.Engine == "" {
		cfg.PDF.Engine = EngineChrome
	}
	if cfg.PDF.DefaultPaper == "" {
		cfg.PDF.DefaultPaper = "A4"
	}
	if len(cfg.PDF.PaperSizes) == 0 {
		cfg.PDF.PaperSizes = map[string]PaperSize{
			"A4":     {Width: 8.27, Height: 11.69},
			"LETTER": {Width: 8.5, Height: 11},
		}
	}
	if cfg.PDF.Margin == 0 {
		cfg.PDF.Margin = 0.4
	}
	if cfg.PDF.ViewportWidth == 0 {
		cfg.PDF.ViewportWidth = 1240
	}
	if cfg.PDF.ViewportHeight == 0 {
		cfg.PDF.ViewportHeight = 1754
	}
	if cfg.PDF.TimeoutSecs == 0 {
		cfg.PDF.TimeoutSecs = 30
	}
	if cfg.PDF.BundledChromePath == "" {
		cfg.PDF.BundledChromePath = "/opt/chromium/chromium"
	}
	if cfg.Viewer.DocumentTTL == 0 {
		cfg.Viewer.DocumentTTL = 30 * time.Minute
	}
}

func applyEnv(cfg *Config) {
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}
	if v := os.Getenv("PDF_ENGINE"); v != "" {
		cfg.PDF.Engine = strings.ToLower(v)
	}
	if IsServerless() {
		cfg.PDF.Serverless = true
	}
}

// IsServerless reports whether the process runs on a serverless platform,
// where only the bundled headless engine binary is available.
func IsServerless() bool {
	if strings.EqualFold(os.Getenv("DEPLOY_ENV"), "serverless") {
		return true
	}
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" || os.Getenv("VERCEL") != ""
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch c.PDF.Engine {
	case EngineChrome, EngineFPDF:
	default:
		return fmt.Errorf("pdf.engine must be %q or %q, got %q", EngineChrome, EngineFPDF, c.PDF.Engine)
	}
	if _, ok := c.Paper(); !ok {
		return fmt.Errorf("pdf.default_paper %q not found in pdf.paper_sizes", c.PDF.DefaultPaper)
	}
	if c.PDF.Margin < 0 || c.PDF.Margin > 2 {
		return fmt.Errorf("pdf.margin must be between 0 and 2 inches")
	}
	if c.PDF.TimeoutSecs < 0 {
		return fmt.Errorf("pdf.timeout_secs must not be negative")
	}
	if c.PDF.ChromePoolSize < 0 {
		return fmt.Errorf("pdf.chrome_pool_size must not be negative")
	}
	if c.Limits.MaxImages < 0 {
		return fmt.Errorf("limits.max_images must not be negative")
	}
	if c.RateLimiter.UserLimit < 0 {
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	}
	if c.RateLimiter.Interval < 0 {
		return fmt.Errorf("rate_limiter.interval must not be negative")
	}
	if c.Auth.Enabled && c.Auth.Postgres.DSN == "" && c.Auth.Postgres.Host == "" {
		return fmt.Errorf("auth.postgres.dsn or auth.postgres.host is required when auth is enabled")
	}
	return nil
}
