package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Server    ServerConfig              `json:"server" yaml:"server"`
	Gateways  map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Store     StoreConfig               `json:"store" yaml:"store"`
	Runner    RunnerConfig              `json:"runner" yaml:"runner"`
	Retrieval RetrievalConfig           `json:"retrieval" yaml:"retrieval"`
}

type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Workspace string `json:"workspace" yaml:"workspace"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type GatewayConfig struct {
	Token     string `json:"token" yaml:"token"`
	ChannelID string `json:"channel_id,omitempty" yaml:"channel_id,omitempty"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type StoreConfig struct {
	Type       string `json:"type" yaml:"type"` // "memory" or "sqlite"
	Path       string `json:"path" yaml:"path"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds"`
}

type RunnerConfig struct {
	Headless        bool   `json:"headless" yaml:"headless"`
	StepTimeoutMS   int    `json:"step_timeout_ms" yaml:"step_timeout_ms"`
	SettleTimeoutMS int    `json:"settle_timeout_ms" yaml:"settle_timeout_ms"`
	SlowMoMS        int    `json:"slow_mo_ms" yaml:"slow_mo_ms"`
	OutputDir       string `json:"output_dir" yaml:"output_dir"`
}

type RetrievalConfig struct {
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`
	TopK    int    `json:"top_k" yaml:"top_k"`
}

// LoadConfig reads the config file, decoding by extension (.yaml/.yml or
// JSON). Missing knobs get workable defaults; a missing file is fatal.
func LoadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "flowtest"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Runner.StepTimeoutMS <= 0 {
		c.Runner.StepTimeoutMS = 15000
	}
	if c.Runner.SettleTimeoutMS <= 0 {
		c.Runner.SettleTimeoutMS = 3000
	}
	if c.Runner.OutputDir == "" {
		c.Runner.OutputDir = filepath.Join("logs", "test_runs")
	}
	if c.Retrieval.DocsDir == "" {
		c.Retrieval.DocsDir = "docs"
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 6
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGateway returns a gateway config if present and enabled
func (c *Config) GetGateway(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled {
		return g, true
	}
	return GatewayConfig{}, false
}
