package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Backends BackendsConfig `toml:"backends"`
	Jina     JinaConfig     `toml:"jina"`
	Chrome   ChromeConfig   `toml:"chrome"`
	Static   StaticConfig   `toml:"static"`
	Retry    RetryConfig    `toml:"retry"`
	Cache    CacheConfig    `toml:"cache"`
	Batch    BatchConfig    `toml:"batch"`
	Output   OutputConfig   `toml:"output"`
	Logging  LoggingConfig  `toml:"logging"`
}

type BackendsConfig struct {
	// Chain lists backends in fallback priority order.
	Chain []string `toml:"chain"`
}

type JinaConfig struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Timeout       int    `toml:"timeout"`
	IncludeImages bool   `toml:"include_images"`
}

type ChromeConfig struct {
	Headless        bool   `toml:"headless"`
	Timeout         int    `toml:"timeout"`
	SettleMs        int    `toml:"settle_ms"`
	WaitForSelector string `toml:"wait_for_selector"`
	UserAgent       string `toml:"user_agent"`
	IncludeImages   bool   `toml:"include_images"`
}

type StaticConfig struct {
	Timeout       int    `toml:"timeout"`
	UserAgent     string `toml:"user_agent"`
	BrowserAgent  string `toml:"browser_agent"`
	InjectCookies bool   `toml:"inject_cookies"`
	CookieBrowser string `toml:"cookie_browser"`
}

type RetryConfig struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMs int `toml:"base_delay_ms"`
}

type CacheConfig struct {
	RetryFailures bool `toml:"retry_failures"`
}

type BatchConfig struct {
	MaxConcurrency int `toml:"max_concurrency"`
	DelayMs        int `toml:"delay_ms"`
	DeadlineS      int `toml:"deadline_s"`
}

type OutputConfig struct {
	Format         string `toml:"format"`
	PreviewLength  int    `toml:"preview_length"`
	IncludeContent bool   `toml:"include_content"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default() *Config {
	return &Config{
		Backends: BackendsConfig{
			Chain: []string{"jina", "chrome"},
		},
		Jina: JinaConfig{
			BaseURL:       "",
			Timeout:       30,
			IncludeImages: false,
		},
		Chrome: ChromeConfig{
			Headless:      true,
			Timeout:       30,
			SettleMs:      1000,
			IncludeImages: false,
		},
		Static: StaticConfig{
			Timeout:       30,
			BrowserAgent:  "auto",
			InjectCookies: false,
			CookieBrowser: "auto",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMs: 1000,
		},
		Cache: CacheConfig{
			RetryFailures: false,
		},
		Batch: BatchConfig{
			MaxConcurrency: 5,
			DelayMs:        0,
			DeadlineS:      0,
		},
		Output: OutputConfig{
			Format:         "markdown",
			PreviewLength:  500,
			IncludeContent: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		configDir, err := defaultConfigDir()
		if err != nil {
			return cfg, err
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WEBCLIP")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

func defaultConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error finding home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "webclip"), nil
}

// DefaultConfigPath returns where CreateExampleConfig writes on first run.
func DefaultConfigPath() string {
	dir, err := defaultConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	exampleContent := `# webclip configuration file

[backends]
# Fallback chain in priority order. Available: static, jina, chrome.
# The first succeeding backend wins; later ones only start when reached.
chain = ["jina", "chrome"]

[jina]
api_key = ""          # optional; also read from WEBCLIP_JINA_API_KEY
base_url = ""         # override the rendering endpoint (testing)
timeout = 30          # seconds
include_images = false

[chrome]
headless = true
timeout = 30          # seconds for navigation + readiness
settle_ms = 1000      # grace after ready for late network activity
wait_for_selector = "" # CSS selector marking content-ready (optional)
user_agent = ""
include_images = false

[static]
timeout = 30
user_agent = ""        # custom user agent (empty = pick from pool)
browser_agent = "auto" # pool family: auto, chrome, firefox, safari, edge
inject_cookies = false # read cookies from local browser profiles
cookie_browser = "auto"

[retry]
max_attempts = 3      # total attempts per backend
base_delay_ms = 1000  # first retry delay; doubles each attempt

[cache]
retry_failures = false # re-attempt URLs whose cached result failed

[batch]
max_concurrency = 5   # worker pool size
delay_ms = 0          # minimum delay between dispatches (rate limiting)
deadline_s = 0        # overall batch deadline (0 = none)

[output]
format = "markdown"   # markdown or json
preview_length = 500  # content preview length in the digest
include_content = true

[logging]
level = "info"        # debug, info, warn, error
`

	return os.WriteFile(configPath, []byte(exampleContent), 0644)
}
