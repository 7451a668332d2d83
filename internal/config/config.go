package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EngineOKSVG  = "oksvg"
	EngineChrome = "chrome"

	BackendS3     = "s3"
	BackendMemory = "memory"

	PruneInline     = "inline"
	PruneBackground = "background"
)

type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   string `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type FetchConfig struct {
	MaxSVGBytes int64         `yaml:"max_svg_bytes"`
	Timeout     time.Duration `yaml:"timeout"`
}

type RenderConfig struct {
	Engine          string        `yaml:"engine"`
	MinOutputWidth  int           `yaml:"min_output_width"`
	MaxOutputWidth  int           `yaml:"max_output_width"`
	MaxOutputHeight int           `yaml:"max_output_height"`
	Timeout         time.Duration `yaml:"timeout"`
	ChromePath      string        `yaml:"chrome_path"`
	ChromeNoSandbox bool          `yaml:"chrome_no_sandbox"`
}

type StorageConfig struct {
	Backend      string        `yaml:"backend"`
	Bucket       string        `yaml:"bucket"`
	Endpoint     string        `yaml:"endpoint"`
	Region       string        `yaml:"region"`
	AccessKey    string        `yaml:"access_key"`
	SecretKey    string        `yaml:"secret_key"`
	UseSSL       bool          `yaml:"use_ssl"`
	PathStyle    bool          `yaml:"path_style"`
	CreateBucket bool          `yaml:"create_bucket"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`
}

type RetentionConfig struct {
	PruneAfter time.Duration `yaml:"prune_after"`
	Mode       string        `yaml:"mode"`
}

type RateLimiterConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

type LoggerConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Config is built once at startup and passed by value to every component.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Render      RenderConfig      `yaml:"render"`
	Storage     StorageConfig     `yaml:"storage"`
	Retention   RetentionConfig   `yaml:"retention"`
	RateLimiter RateLimiterConfig `yaml:"rate_limiter"`
	Redis       RedisConfig       `yaml:"redis"`
	Logger      LoggerConfig      `yaml:"logger"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	var cfg Config
	cfg.Server.Port = "8080"

	cfg.Fetch.MaxSVGBytes = 5 * 1024 * 1024
	cfg.Fetch.Timeout = 10 * time.Second

	cfg.Render.Engine = EngineOKSVG
	cfg.Render.MinOutputWidth = 512
	cfg.Render.MaxOutputWidth = 4096
	cfg.Render.MaxOutputHeight = 4096
	cfg.Render.Timeout = 30 * time.Second
	cfg.Render.ChromeNoSandbox = true

	cfg.Storage.Backend = BackendS3
	cfg.Storage.Bucket = "svg-render-service"
	cfg.Storage.Endpoint = "storage.googleapis.com"
	cfg.Storage.UseSSL = true
	cfg.Storage.SignedURLTTL = time.Hour

	cfg.Retention.PruneAfter = 24 * time.Hour
	cfg.Retention.Mode = PruneInline

	cfg.RateLimiter.Window = time.Minute

	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 50
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7
	return cfg
}

// Load reads the yaml file named by CONFIG_PATH (optional), a local .env
// file (optional) and finally the process environment, later sources winning.
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CONFIG_PATH"))
}

// LoadFrom is Load with an explicit yaml path. An empty path skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return cfg, fmt.Errorf("load .env: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	e := &envReader{}

	e.str("API_KEY", &cfg.Server.APIKey)
	e.str("HOST", &cfg.Server.Host)
	e.str("PORT", &cfg.Server.Port)

	e.int64("MAX_SVG_BYTES", &cfg.Fetch.MaxSVGBytes)
	e.seconds("SVG_FETCH_TIMEOUT_SECONDS", &cfg.Fetch.Timeout)

	e.str("RENDER_ENGINE", &cfg.Render.Engine)
	e.int("MIN_OUTPUT_WIDTH", &cfg.Render.MinOutputWidth)
	e.int("MAX_OUTPUT_WIDTH", &cfg.Render.MaxOutputWidth)
	e.int("MAX_OUTPUT_HEIGHT", &cfg.Render.MaxOutputHeight)
	e.seconds("RENDER_TIMEOUT_SECONDS", &cfg.Render.Timeout)
	e.str("CHROME_BIN", &cfg.Render.ChromePath)
	e.bool("CHROME_NO_SANDBOX", &cfg.Render.ChromeNoSandbox)

	e.str("STORE_BACKEND", &cfg.Storage.Backend)
	e.str("BUCKET_NAME", &cfg.Storage.Bucket)
	e.str("STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	e.str("STORAGE_REGION", &cfg.Storage.Region)
	e.str("STORAGE_ACCESS_KEY", &cfg.Storage.AccessKey)
	e.str("STORAGE_SECRET_KEY", &cfg.Storage.SecretKey)
	e.bool("STORAGE_USE_SSL", &cfg.Storage.UseSSL)
	e.bool("STORAGE_PATH_STYLE", &cfg.Storage.PathStyle)
	e.bool("STORAGE_CREATE_BUCKET", &cfg.Storage.CreateBucket)
	e.seconds("SIGNED_URL_TTL_SECONDS", &cfg.Storage.SignedURLTTL)

	e.seconds("PRUNE_AFTER_SECONDS", &cfg.Retention.PruneAfter)
	e.str("PRUNE_MODE", &cfg.Retention.Mode)

	e.int("RATE_LIMIT_MAX", &cfg.RateLimiter.Max)
	e.duration("RATE_LIMIT_WINDOW", &cfg.RateLimiter.Window)
	e.str("REDIS_ADDR", &cfg.Redis.Addr)
	e.int("REDIS_DB", &cfg.Redis.DB)

	e.str("LOG_FILE", &cfg.Logger.File)
	e.str("LOG_LEVEL", &cfg.Logger.Level)
	e.int("LOG_MAX_SIZE_MB", &cfg.Logger.MaxSizeMB)
	e.int("LOG_MAX_BACKUPS", &cfg.Logger.MaxBackups)
	e.int("LOG_MAX_AGE_DAYS", &cfg.Logger.MaxAgeDays)
	e.bool("LOG_COMPRESS", &cfg.Logger.Compress)

	return errors.Join(e.errs...)
}

// Validate reports every setting that would make the service misbehave.
func (c Config) Validate() error {
	return c.validate(true)
}

// ValidateOffline is Validate without the HTTP settings, for the prune and
// render commands.
func (c Config) ValidateOffline() error {
	return c.validate(false)
}

func (c Config) validate(serving bool) error {
	var errs []error
	if serving && c.Server.APIKey == "" {
		errs = append(errs, errors.New("API_KEY must be set"))
	}
	if c.Fetch.MaxSVGBytes <= 0 {
		errs = append(errs, errors.New("MAX_SVG_BYTES must be positive"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("SVG_FETCH_TIMEOUT_SECONDS must be positive"))
	}
	if c.Render.MinOutputWidth <= 0 || c.Render.MaxOutputWidth <= 0 || c.Render.MaxOutputHeight <= 0 {
		errs = append(errs, errors.New("output dimensions must be positive"))
	}
	if c.Render.MinOutputWidth > c.Render.MaxOutputWidth {
		errs = append(errs, errors.New("MIN_OUTPUT_WIDTH must not exceed MAX_OUTPUT_WIDTH"))
	}
	if c.Render.Engine != EngineOKSVG && c.Render.Engine != EngineChrome {
		errs = append(errs, fmt.Errorf("unknown RENDER_ENGINE %q", c.Render.Engine))
	}
	if c.Storage.Backend != BackendS3 && c.Storage.Backend != BackendMemory {
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Storage.Backend))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("BUCKET_NAME must be set"))
	}
	if c.Storage.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_TTL_SECONDS must be positive"))
	}
	if c.Retention.PruneAfter < 0 {
		errs = append(errs, errors.New("PRUNE_AFTER_SECONDS must not be negative"))
	}
	if c.Retention.Mode != PruneInline && c.Retention.Mode != PruneBackground {
		errs = append(errs, fmt.Errorf("unknown PRUNE_MODE %q", c.Retention.Mode))
	}
	if c.RateLimiter.Max < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must not be negative"))
	}
	if c.RateLimiter.Max > 0 && c.RateLimiter.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	port := c.Server.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return c.Server.Host + port
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(key string, dst *int64) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) bool(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) seconds(key string, dst *time.Duration) {
	var n int64
	before := len(e.errs)
	if _, ok := e.lookup(key); !ok {
		return
	}
	e.int64(key, &n)
	if len(e.errs) == before {
		*dst = time.Duration(n) * time.Second
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
