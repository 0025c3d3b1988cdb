package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  listenAddress: \":9090\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
	assert.Equal(t, 0.9, cfg.Engine.WarningThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Engine.ScanIntervalDuration())
	assert.Equal(t, 5*time.Minute, cfg.Engine.RunTimeoutDuration())
	assert.Equal(t, 3, cfg.Engine.DispatchRetryCount)
	assert.Equal(t, 500, cfg.Engine.DispatchBackoffMs)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "workflow", cfg.Redis.KeyPrefix)
	assert.Equal(t, "escalation-audit", cfg.Audit.Topic)
	assert.Equal(t, 587, cfg.Mail.Port)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listenAddress: ":8443"
engine:
  warningThreshold: 0.8
  scanInterval: "10m"
  runTimeout: "2m"
  dispatchRetryCount: 5
  dispatchBackoffMs: 250
mail:
  host: smtp.example.com
  port: 465
  senderAddress: hr-noreply@example.com
redis:
  address: redis.internal:6379
  keyPrefix: hrflow
audit:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  topic: hr-escalations
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Engine.WarningThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Engine.ScanIntervalDuration())
	assert.Equal(t, 2*time.Minute, cfg.Engine.RunTimeoutDuration())
	assert.Equal(t, 5, cfg.Engine.DispatchRetryCount)
	assert.Equal(t, 250, cfg.Engine.DispatchBackoffMs)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
	assert.Equal(t, "hrflow", cfg.Redis.KeyPrefix)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Audit.Brokers)
	assert.Equal(t, "hr-escalations", cfg.Audit.Topic)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "engine:\n  warningThreshold: 0.7\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("ignored-path.yaml")
	require.NoError(t, err)
	assert.Equal(t, 0.7, cfg.Engine.WarningThreshold)
}

func TestDurationFallbackOnMalformedValues(t *testing.T) {
	e := Engine{ScanInterval: "not-a-duration", RunTimeout: "-3m"}
	assert.Equal(t, 15*time.Minute, e.ScanIntervalDuration())
	assert.Equal(t, 5*time.Minute, e.RunTimeoutDuration())
}

func TestInvalidWarningThresholdReset(t *testing.T) {
	cfg := Config{Engine: Engine{WarningThreshold: 1.4}}
	cfg.Defaults()
	assert.Equal(t, 0.9, cfg.Engine.WarningThreshold)
}
