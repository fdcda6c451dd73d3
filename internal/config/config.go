package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendPDFShift = "pdfshift"
	BackendChrome   = "chrome"

	DefaultPort             = "3000"
	DefaultBodyLimitBytes   = 50 * 1024 * 1024
	DefaultPDFShiftEndpoint = "https://api.pdfshift.io/v3/convert/pdf"
	DefaultDropboxUploadURL = "https://content.dropboxapi.com/2/files/upload"
)

// Margin mirrors the converter margin object; values are passed through as strings.
type Margin struct {
	Top    string `yaml:"top"`
	Right  string `yaml:"right"`
	Bottom string `yaml:"bottom"`
	Left   string `yaml:"left"`
}

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Server struct {
		Host           string `yaml:"host"`
		Port           string `yaml:"port"`
		Prefork        bool   `yaml:"prefork"`
		BodyLimitBytes int    `yaml:"body_limit_bytes"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Converter struct {
		Backend      string        `yaml:"backend"`
		Endpoint     string        `yaml:"endpoint"`
		APIKey       string        `yaml:"api_key"`
		Timeout      time.Duration `yaml:"timeout"`
		Landscape    bool          `yaml:"landscape"`
		UsePrint     bool          `yaml:"use_print"`
		Margin       Margin        `yaml:"margin"`
		SanitizeHTML bool          `yaml:"sanitize_html"`

		ChromePath      string `yaml:"chrome_path"`
		ChromeNoSandbox bool   `yaml:"chrome_no_sandbox"`
	} `yaml:"converter"`

	Storage struct {
		UploadURL   string        `yaml:"upload_url"`
		AccessToken string        `yaml:"access_token"`
		Folder      string        `yaml:"folder"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"storage"`

	Cache struct {
		RedisHost       string        `yaml:"redis_host"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
		IdempotencyDB   int           `yaml:"redis_idempotency_db"`
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
	} `yaml:"cache"`

	Idempotency struct {
		Enabled  bool          `yaml:"enabled"`
		Lifetime time.Duration `yaml:"lifetime"`
	} `yaml:"idempotency"`
}

// Default returns the configuration used when no file and no env overrides exist.
func Default() Config {
	var cfg Config
	cfg.Server.Port = ":" + DefaultPort
	cfg.Server.BodyLimitBytes = DefaultBodyLimitBytes

	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7

	cfg.Converter.Backend = BackendPDFShift
	cfg.Converter.Endpoint = DefaultPDFShiftEndpoint
	cfg.Converter.UsePrint = true
	cfg.Converter.Margin = Margin{Top: "20", Right: "20", Bottom: "20", Left: "20"}
	cfg.Converter.ChromeNoSandbox = true

	cfg.Storage.UploadURL = DefaultDropboxUploadURL

	cfg.Cache.PDFCacheDB = 1
	cfg.Cache.IdempotencyDB = 2
	cfg.Cache.PDFCacheTTL = time.Minute

	cfg.Idempotency.Lifetime = 30 * time.Minute
	return cfg
}

// Load reads CONFIG_PATH when set and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv("CONFIG_PATH"))
}

// LoadFrom reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result. It panics on invalid values.
// Missing credentials are not an error: the relay must still answer /health.
func LoadFrom(path string) Config {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			panic(fmt.Sprintf("config: read %s: %v", path, err))
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: parse %s: %v", path, err))
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		panic("config: " + err.Error())
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = normalizePort(v)
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DROPBOX_TOKEN"); v != "" {
		cfg.Storage.AccessToken = v
	}
	if v := os.Getenv("DROPBOX_FOLDER"); v != "" {
		cfg.Storage.Folder = v
	}
	if v := os.Getenv("PDFSHIFT_API_KEY"); v != "" {
		cfg.Converter.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
	}
	if cfg.Converter.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.Converter.ChromePath = v
		}
	}
}

// normalizePort accepts "3000" as well as ":3000".
func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

// Validate reports structurally invalid values.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is empty")
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(c.Server.Port, ":")); err != nil {
		return fmt.Errorf("server.port %q is not numeric", c.Server.Port)
	}
	if c.Server.BodyLimitBytes <= 0 {
		return fmt.Errorf("server.body_limit_bytes must be positive")
	}
	switch c.Converter.Backend {
	case BackendPDFShift:
		if c.Converter.Endpoint == "" {
			return fmt.Errorf("converter.endpoint is empty")
		}
	case BackendChrome:
	default:
		return fmt.Errorf("converter.backend %q is not supported", c.Converter.Backend)
	}
	if c.Converter.Timeout < 0 || c.Storage.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Storage.UploadURL == "" {
		return fmt.Errorf("storage.upload_url is empty")
	}
	if c.Cache.PDFCacheEnabled && c.Cache.RedisHost == "" {
		return fmt.Errorf("cache.pdf_cache_enabled requires cache.redis_host")
	}
	if c.Cache.PDFCacheTTL < 0 || c.Idempotency.Lifetime < 0 {
		return fmt.Errorf("cache and idempotency durations must not be negative")
	}
	return nil
}

// ConverterReady reports whether the selected converter backend can be used.
func (c Config) ConverterReady() bool {
	if c.Converter.Backend == BackendChrome {
		return true
	}
	return c.Converter.APIKey != ""
}

// StorageReady reports whether uploads can be attempted.
func (c Config) StorageReady() bool {
	return c.Storage.AccessToken != ""
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Server.Host + c.Server.Port
}

// UploadPath joins the configured folder and a user-supplied file name.
func (c Config) UploadPath(fileName string) string {
	return c.Storage.Folder + "/" + fileName
}
