package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestParseConfigDefaults(t *testing.T) {
	defaults := defaultPersistentConfig()
	cfg, err := parseConfig([]string{}, noEnv, defaults)
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if cfg.sampleRate != 10e6 || cfg.dwellTime != 45*time.Microsecond || cfg.maxAntennas != 6 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.source != "mock" || cfg.serialPort != "" || cfg.configPath != defaultConfigPath {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	env := map[string]string{
		"AOA_SAMPLE_RATE":   "2000000",
		"AOA_DWELL_TIME":    "100us",
		"AOA_SOURCE":        "file",
		"AOA_NUM_SAMPLES":   "2048",
		"AOA_LOOP":          "true",
		"AOA_SERIAL_PORT":   "/dev/ttyACM0",
		"AOA_MAX_ANTENNAS":  "not-a-number",
		"AOA_SETTLING_TIME": "bogus",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	defaults := defaultPersistentConfig()
	cfg, err := parseConfig([]string{"--threshold", "0.2", "--max-antennas=4"}, lookup, defaults)
	require.NoError(t, err)
	assert.Equal(t, 2e6, cfg.sampleRate)
	assert.Equal(t, 100*time.Microsecond, cfg.dwellTime)
	assert.Equal(t, "file", cfg.source)
	assert.Equal(t, 2048, cfg.numSamples)
	assert.True(t, cfg.loop)
	assert.Equal(t, "/dev/ttyACM0", cfg.serialPort)
	assert.Equal(t, 0.2, cfg.threshold)
	assert.Equal(t, 4, cfg.maxAntennas, "flags win over env")
	assert.Equal(t, defaults.SettlingTime, cfg.settlingTime, "unparsable env keeps the default")
}

func TestParseConfigRejectsStrayArgs(t *testing.T) {
	_, err := parseConfig([]string{"extra"}, noEnv, defaultPersistentConfig())
	require.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	cases := []struct {
		args []string
		env  map[string]string
		want string
	}{
		{nil, nil, defaultConfigPath},
		{[]string{"--threshold", "0.1"}, map[string]string{"AOA_CONFIG": "env.yaml"}, "env.yaml"},
		{[]string{"--config", "a.yaml"}, map[string]string{"AOA_CONFIG": "env.yaml"}, "a.yaml"},
		{[]string{"--loop", "--config=b.yaml"}, nil, "b.yaml"},
		{[]string{"--", "--config=c.yaml"}, nil, defaultConfigPath},
	}
	for _, tc := range cases {
		lookup := func(key string) (string, bool) {
			v, ok := tc.env[key]
			return v, ok
		}
		got, err := configPath(tc.args, lookup)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "args %v", tc.args)
	}
	_, err := configPath([]string{"--config"}, noEnv)
	assert.Error(t, err)
}

func TestConfigRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoa.yaml")

	created, err := loadOrCreateConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultPersistentConfig(), created)
	_, err = os.Stat(path)
	require.NoError(t, err, "missing config file should be created")

	cfg, err := parseConfig([]string{"--dwell-time", "60us", "--mock-bearing-deg", "-30"}, noEnv, created)
	require.NoError(t, err)
	require.NoError(t, saveConfig(path, persistentFromCLI(cfg)))

	loaded, err := loadOrCreateConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Microsecond, loaded.DwellTime)
	assert.Equal(t, -30.0, loaded.MockBearingDeg)
}

func TestLoadConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoa.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 0.3\nsource: file\n"), 0o644))

	cfg, err := loadOrCreateConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Threshold)
	assert.Equal(t, "file", cfg.Source)
	assert.Equal(t, defaultPersistentConfig().DwellTime, cfg.DwellTime)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoa.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: [oops\n"), 0o644))
	_, err := loadOrCreateConfig(path)
	assert.Error(t, err)
}

func TestBlockConfigBuildsValidGeometry(t *testing.T) {
	cfg, err := parseConfig(nil, noEnv, defaultPersistentConfig())
	require.NoError(t, err)
	block := cfg.blockConfig()
	src := cfg.sourceConfig()
	assert.Equal(t, block.MaxAntennas, src.Antennas)
	assert.Equal(t, block.DwellTime, src.Dwell)
	assert.Equal(t, block.SettlingTime, src.Settling)
	assert.Equal(t, block.SampleRate, src.SampleRate)
}

func TestSelectSourceError(t *testing.T) {
	if _, err := selectSource(cliConfig{source: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown source")
	}
	if _, err := selectSource(cliConfig{source: "file"}); err == nil {
		t.Fatalf("expected error for file source without input")
	}
}

func TestSelectSource(t *testing.T) {
	for _, cfg := range []cliConfig{{source: "mock"}, {source: "file", input: "capture.cf32"}} {
		src, err := selectSource(cfg)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", cfg.source, err)
		}
		if src == nil {
			t.Fatalf("source %s should not be nil", cfg.source)
		}
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger(cliConfig{logLevel: "loud", logFormat: "text"}, os.Stderr)
	assert.Error(t, err)
	_, err = newLogger(cliConfig{logLevel: "info", logFormat: "xml"}, os.Stderr)
	assert.Error(t, err)
}
