package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanspareilsmyn/profilelens/internal/profile"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
kafka:
  brokers: ["localhost:9092"]
  topic: telemetry
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "telemetry", cfg.Kafka.Topic)
	assert.Equal(t, defaultKafkaGroupID, cfg.Kafka.GroupID)
	assert.Equal(t, defaultKafkaOutputTopic, cfg.Kafka.OutputTopic)
	assert.Equal(t, 15*time.Minute, cfg.Profiler.PeriodDuration)
	assert.Equal(t, 30*time.Minute, cfg.Profiler.TTL)
	assert.Equal(t, filepath.Join(dir, defaultDefinitionsFile), cfg.Profiler.DefinitionsFile)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":2112", cfg.Metrics.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFileValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
kafka:
  brokers: ["b1:9092", "b2:9092"]
  topic: telemetry
  groupID: profilers
  outputTopic: measurements
profiler:
  periodDuration: 1m
  ttl: 2h
  definitionsFile: /etc/profilelens/profiler.yaml
metrics:
  enabled: false
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "profilers", cfg.Kafka.GroupID)
	assert.Equal(t, "measurements", cfg.Kafka.OutputTopic)
	assert.Equal(t, time.Minute, cfg.Profiler.PeriodDuration)
	assert.Equal(t, 2*time.Hour, cfg.Profiler.TTL)
	assert.Equal(t, "/etc/profilelens/profiler.yaml", cfg.Profiler.DefinitionsFile)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
kafka:
  brokers: ["localhost:9092"]
  topic: telemetry
profiler:
  periodDuration: 1m
`)
	t.Setenv("PROFILELENS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PROFILELENS_PROFILER_PERIODDURATION", "5m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Profiler.PeriodDuration)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "no brokers",
			content: "kafka:\n  topic: telemetry\n",
			wantErr: ErrEmptyKafkaBrokers,
		},
		{
			name:    "no topic",
			content: "kafka:\n  brokers: [\"localhost:9092\"]\n",
			wantErr: ErrEmptyKafkaTopic,
		},
		{
			name:    "sub-millisecond period",
			content: "kafka:\n  brokers: [\"localhost:9092\"]\n  topic: t\nprofiler:\n  periodDuration: 100us\n",
			wantErr: ErrInvalidPeriodDuration,
		},
		{
			name:    "zero ttl",
			content: "kafka:\n  brokers: [\"localhost:9092\"]\n  topic: t\nprofiler:\n  ttl: 0s\n",
			wantErr: ErrInvalidProfileTTL,
		},
		{
			name:    "metrics without address",
			content: "kafka:\n  brokers: [\"localhost:9092\"]\n  topic: t\nmetrics:\n  address: \"\"\n",
			wantErr: ErrEmptyMetricsAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			_, err := Load(path)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileMissing)
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "profiler.yaml", `
timestampField: timestamp
profiles:
  - profile: bytes-out
    foreach: ip_src_addr
    onlyif: exists(bytes)
    init:
      total: "0"
    update:
      total: total + bytes
    result: total
`)

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp", profiles.TimestampField)
	require.Len(t, profiles.Profiles, 1)
	assert.Equal(t, "bytes-out", profiles.Profiles[0].Name)
	assert.Equal(t, "total + bytes", profiles.Profiles[0].Update[0].Expression)

	_, err = LoadProfiles(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrReadingDefinitionsFile)

	bad := writeFile(t, dir, "bad.yaml", "profiles:\n  - profile: x\n    result: \"1\"\n")
	_, err = LoadProfiles(bad)
	assert.ErrorIs(t, err, ErrInvalidProfileDefinition)
	assert.ErrorIs(t, err, profile.ErrMissingForeach)
}

func TestShippedConfigs(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.dev.yaml"))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Profiler.PeriodDuration)

	profiles, err := LoadProfiles(cfg.Profiler.DefinitionsFile)
	require.NoError(t, err)
	assert.Equal(t, "timestamp", profiles.TimestampField)
	assert.Len(t, profiles.Profiles, 3)
}
