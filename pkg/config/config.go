// Package config loads the escalation engine configuration from a YAML file
// and applies defaults for unset values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "ESCALATION_CONFIG_PATH"

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TLSCertFile    string   `yaml:"tlsCertFile"`
	TLSKeyFile     string   `yaml:"tlsKeyFile"`
	TrustedProxies []string `yaml:"trustedProxies"`
}

// Engine holds the scan and dispatch tuning for the escalation engine.
type Engine struct {
	// WarningThreshold is the fraction of the SLA (e.g. 0.9) after which an
	// instance is classified as approaching its deadline.
	WarningThreshold float64 `yaml:"warningThreshold"`
	// ScanInterval is how often the periodic scan runs (e.g. "15m").
	ScanInterval string `yaml:"scanInterval"`
	// RunTimeout is the wall-clock budget for a single scan (e.g. "5m");
	// runs exceeding it are cancelled, already-dispatched actions remain
	// valid.
	RunTimeout string `yaml:"runTimeout"`
	// DispatchRetryCount is the number of delivery attempts per reminder.
	DispatchRetryCount int `yaml:"dispatchRetryCount"`
	// DispatchBackoffMs is the initial retry backoff; doubles per attempt.
	DispatchBackoffMs int `yaml:"dispatchBackoffMs"`
}

// ScanIntervalDuration parses ScanInterval, falling back to 15 minutes on
// empty or malformed values.
func (e Engine) ScanIntervalDuration() time.Duration {
	return parseDurationOr(e.ScanInterval, 15*time.Minute)
}

// RunTimeoutDuration parses RunTimeout, falling back to 5 minutes.
func (e Engine) RunTimeoutDuration() time.Duration {
	return parseDurationOr(e.RunTimeout, 5*time.Minute)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

type Mail struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	SenderAddress      string `yaml:"senderAddress"`
	SenderName         string `yaml:"senderName"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	// BaseURL is the external URL of the HR application, linked from
	// reminder and escalation mails.
	BaseURL string `yaml:"baseURL"`
}

type Redis struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Audit configures the escalation audit trail. When Brokers is empty the
// engine falls back to the log sink.
type Audit struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Config struct {
	Server Server `yaml:"server"`
	Engine Engine `yaml:"engine"`
	Mail   Mail   `yaml:"mail"`
	Redis  Redis  `yaml:"redis"`
	Audit  Audit  `yaml:"audit"`
}

// Load reads the engine configuration from a file path. If configPath is
// empty, it defaults to "./config.yaml"; the ESCALATION_CONFIG_PATH
// environment variable takes precedence over both.
func Load(configPath ...string) (Config, error) {
	path := "./config.yaml"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	}

	var config Config
	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("opening escalation config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("unmarshaling config YAML %s: %w", path, err)
	}
	config.Defaults()
	return config, nil
}

// Defaults fills unset fields with production defaults.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Engine.WarningThreshold <= 0 || c.Engine.WarningThreshold >= 1 {
		c.Engine.WarningThreshold = 0.9
	}
	if c.Engine.DispatchRetryCount <= 0 {
		c.Engine.DispatchRetryCount = 3
	}
	if c.Engine.DispatchBackoffMs <= 0 {
		c.Engine.DispatchBackoffMs = 500
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Redis.Address == "" {
		c.Redis.Address = "localhost:6379"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "workflow"
	}
	if c.Audit.Topic == "" {
		c.Audit.Topic = "escalation-audit"
	}
}
