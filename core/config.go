package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"universe-gateway/core/security"
)

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultTimeout  = 10 * time.Second
	DefaultFeedSize = 6
	DefaultPort     = 8000
	DefaultDBPath   = "universe.db"

	BackendGenAI = "genai"
	BackendREST  = "rest"
)

// Config 服务配置。优先级：环境变量 > CONFIG_FILE 指向的 YAML 文件 > 默认值
type Config struct {
	APIKey          string
	Model           string
	Backend         string
	BaseURL         string
	Timeout         time.Duration
	FeedSize        int
	Port            int
	DBPath          string
	AdminToken      string
	LogLevel        string
	LogFile         string
	LogFileMaxMB    int
	RateLimitRPS    float64
	RateLimitBurst  int
	BreakerFailures int // 0 表示关闭熔断
	BreakerTimeout  time.Duration
}

// fileConfig YAML 配置文件结构，未填写的字段保持默认值
type fileConfig struct {
	APIKey   string  `yaml:"api_key"`
	Model    string  `yaml:"model"`
	Backend  string  `yaml:"backend"`
	BaseURL  string  `yaml:"base_url"`
	Timeout  string  `yaml:"timeout"`
	FeedSize int     `yaml:"feed_size"`
	Port     int     `yaml:"port"`
	DBPath   *string `yaml:"db_path"`
	Admin    struct {
		Token string `yaml:"token"`
	} `yaml:"admin"`
	Log struct {
		Level     string `yaml:"level"`
		File      string `yaml:"file"`
		FileMaxMB int    `yaml:"file_max_mb"`
	} `yaml:"log"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Breaker struct {
		Failures *int   `yaml:"failures"`
		Timeout  string `yaml:"open_timeout"`
	} `yaml:"breaker"`
}

func defaultConfig() *Config {
	return &Config{
		Model:           DefaultModel,
		Backend:         BackendGenAI,
		Timeout:         DefaultTimeout,
		FeedSize:        DefaultFeedSize,
		Port:            DefaultPort,
		DBPath:          DefaultDBPath,
		LogLevel:        "info",
		LogFileMaxMB:    50,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// LoadConfig 读取配置。缺少 API Key 是合法的演示/离线模式，不报错
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := resolveSecrets(cfg, os.Getenv("SECRET_KEY")); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.APIKey, fc.APIKey)
	setString(&cfg.Model, fc.Model)
	setString(&cfg.Backend, strings.ToLower(fc.Backend))
	setString(&cfg.BaseURL, fc.BaseURL)
	setString(&cfg.AdminToken, fc.Admin.Token)
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFile, fc.Log.File)
	setInt(&cfg.FeedSize, fc.FeedSize)
	setInt(&cfg.Port, fc.Port)
	setInt(&cfg.LogFileMaxMB, fc.Log.FileMaxMB)
	setInt(&cfg.RateLimitBurst, fc.RateLimit.Burst)
	if fc.RateLimit.RPS != 0 {
		cfg.RateLimitRPS = fc.RateLimit.RPS
	}
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.Breaker.Failures != nil {
		cfg.BreakerFailures = *fc.Breaker.Failures
	}
	if fc.Timeout != "" {
		if cfg.Timeout, err = time.ParseDuration(fc.Timeout); err != nil {
			return fmt.Errorf("invalid timeout %q in config file", fc.Timeout)
		}
	}
	if fc.Breaker.Timeout != "" {
		if cfg.BreakerTimeout, err = time.ParseDuration(fc.Breaker.Timeout); err != nil {
			return fmt.Errorf("invalid breaker.open_timeout %q in config file", fc.Breaker.Timeout)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.APIKey, firstEnv("API_KEY", "GEMINI_API_KEY"))
	setString(&cfg.Model, envOr("GEMINI_MODEL", ""))
	setString(&cfg.Backend, strings.ToLower(envOr("GEMINI_BACKEND", "")))
	setString(&cfg.BaseURL, envOr("GEMINI_BASE_URL", ""))
	setString(&cfg.AdminToken, envOr("ADMIN_TOKEN", ""))
	setString(&cfg.LogLevel, envOr("LOG_LEVEL", ""))
	setString(&cfg.LogFile, envOr("LOG_FILE", ""))

	if v, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.DBPath = v // 显式设为空字符串表示关闭遥测持久化
	}

	var err error
	if cfg.Timeout, err = envDuration("GENERATION_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}
	if cfg.BreakerTimeout, err = envDuration("BREAKER_OPEN_TIMEOUT", cfg.BreakerTimeout); err != nil {
		return err
	}
	if cfg.FeedSize, err = envInt("FEED_SIZE", cfg.FeedSize); err != nil {
		return err
	}
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return err
	}
	if cfg.LogFileMaxMB, err = envInt("LOG_FILE_MAX_MB", cfg.LogFileMaxMB); err != nil {
		return err
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return err
	}
	if cfg.BreakerFailures, err = envInt("BREAKER_FAILURES", cfg.BreakerFailures); err != nil {
		return err
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q", v)
		}
		cfg.RateLimitRPS = rps
	}
	return nil
}

// resolveSecrets 解密 enc: 前缀的凭证，密钥来自 SECRET_KEY
func resolveSecrets(cfg *Config, secretKey string) error {
	fields := []*string{&cfg.APIKey, &cfg.AdminToken}
	var provider *security.AESSecretProvider
	for _, f := range fields {
		if !security.IsEncrypted(*f) {
			continue
		}
		if provider == nil {
			if secretKey == "" {
				return errors.New("encrypted credential in config but SECRET_KEY is not set")
			}
			var err error
			if provider, err = security.NewAESSecretProvider(secretKey); err != nil {
				return err
			}
		}
		plain, err := provider.Decrypt(*f)
		if err != nil {
			return err
		}
		*f = plain
	}
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.Backend != BackendGenAI && c.Backend != BackendREST:
		return fmt.Errorf("invalid backend %q (want %s or %s)", c.Backend, BackendGenAI, BackendREST)
	case c.Timeout <= 0:
		return fmt.Errorf("invalid generation timeout %v", c.Timeout)
	case c.FeedSize < 1 || c.FeedSize > 20:
		return fmt.Errorf("invalid feed size %d (want 1..20)", c.FeedSize)
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.LogFileMaxMB < 1:
		return fmt.Errorf("invalid log file size %d MB", c.LogFileMaxMB)
	case c.RateLimitRPS <= 0 || c.RateLimitBurst < 1:
		return fmt.Errorf("invalid rate limit %v/s burst %d", c.RateLimitRPS, c.RateLimitBurst)
	case c.BreakerFailures < 0:
		return fmt.Errorf("invalid breaker failures %d", c.BreakerFailures)
	case c.BreakerTimeout <= 0:
		return fmt.Errorf("invalid breaker open timeout %v", c.BreakerTimeout)
	}
	return nil
}

// Configured 是否配置了远端凭证
func (c *Config) Configured() bool {
	return c.APIKey != ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return d, nil
}
