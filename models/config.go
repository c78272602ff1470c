package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Values come from built-in defaults,
// an optional YAML file, environment variables and CLI flags, in that order.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Cache       CacheConfig       `yaml:"cache"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
	Performance PerformanceConfig `yaml:"performance"`
	LLM         LLMConfig         `yaml:"llm"`
	Safety      SafetyConfig      `yaml:"safety"`
	History     HistoryConfig     `yaml:"history"`
	PromptsPath string            `yaml:"prompts_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type DiscoveryConfig struct {
	MaxPages    int `yaml:"max_pages"`
	Concurrency int `yaml:"concurrency"`
}

type TimeoutConfig struct {
	Page        time.Duration `yaml:"page"`
	Diagnostics time.Duration `yaml:"diagnostics"`
	Sitemap     time.Duration `yaml:"sitemap"`
	Crawl       time.Duration `yaml:"crawl"`
	Crux        time.Duration `yaml:"crux"`
	PageSpeed   time.Duration `yaml:"pagespeed"`
	FastLLM     time.Duration `yaml:"fast_llm"`
	DeepLLM     time.Duration `yaml:"deep_llm"`
	Request     time.Duration `yaml:"request"`
}

type PerformanceConfig struct {
	Auditor         string `yaml:"auditor"` // pagespeed | rod | none
	PageSpeedAPIKey string `yaml:"pagespeed_api_key"`
	PageSpeedURL    string `yaml:"pagespeed_url"`
	CruxAPIKey      string `yaml:"crux_api_key"`
	CruxURL         string `yaml:"crux_url"`
	BrowserBin      string `yaml:"browser_bin"`
}

type LLMConfig struct {
	Fast LLMProvider `yaml:"fast"`
	Deep LLMProvider `yaml:"deep"`
}

type LLMProvider struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type SafetyConfig struct {
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
}

type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables history
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8080"},
		Cache:     CacheConfig{Size: 100, TTL: 5 * time.Minute},
		Discovery: DiscoveryConfig{MaxPages: 3, Concurrency: 4},
		Timeouts: TimeoutConfig{
			Page:        10 * time.Second,
			Diagnostics: 6 * time.Second,
			Sitemap:     3 * time.Second,
			Crawl:       5 * time.Second,
			Crux:        10 * time.Second,
			PageSpeed:   45 * time.Second,
			FastLLM:     20 * time.Second,
			DeepLLM:     90 * time.Second,
			Request:     120 * time.Second,
		},
		Performance: PerformanceConfig{Auditor: "pagespeed"},
		LLM: LLMConfig{
			Fast: LLMProvider{BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.1-8b-instant"},
			Deep: LLMProvider{Model: "gemini-2.5-flash"},
		},
	}
}

// LoadConfig reads path (if non-empty) over the defaults and applies
// environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.LLM.Fast.APIKey, "GROQ_API_KEY")
	set(&c.LLM.Deep.APIKey, "GEMINI_API_KEY")
	set(&c.Performance.PageSpeedAPIKey, "GOOGLE_PSI_API_KEY")
	set(&c.Performance.CruxAPIKey, "GOOGLE_CRUX_API_KEY")
	set(&c.Server.Addr, "WEB_AUDIT_ADDR")

	set(&c.Safety.APIKey, "GOOGLE_PSI_API_KEY")
	set(&c.Safety.APIKey, "GOOGLE_SAFE_BROWSING_API_KEY")
}
