package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rjboer/GoAOA/internal/aoa"
	"github.com/rjboer/GoAOA/internal/sdr"
)

const defaultConfigPath = "aoa.yaml"

type cliConfig struct {
	configPath    string
	sampleRate    float64
	dwellTime     time.Duration
	settlingTime  time.Duration
	threshold     float64
	serialPort    string
	baudRate      int
	maxAntennas   int
	antennaOffset float64
	source        string
	input         string
	loop          bool
	output        string
	numSamples    int
	mockBearing   float64
	mockAmplitude float64
	mockDropEvery int
	pace          time.Duration
	spectrumEvery int
	webAddr       string
	mdns          bool
	mdnsInstance  string
	logLevel      string
	logFormat     string
}

type persistentConfig struct {
	SampleRate       float64       `yaml:"sample_rate"`
	DwellTime        time.Duration `yaml:"dwell_time"`
	SettlingTime     time.Duration `yaml:"settling_time"`
	Threshold        float64       `yaml:"threshold"`
	SerialPort       string        `yaml:"serial_port"`
	BaudRate         int           `yaml:"baud_rate"`
	MaxAntennas      int           `yaml:"max_antennas"`
	AntennaOffsetDeg float64       `yaml:"antenna_offset_deg"`
	Source           string        `yaml:"source"`
	Input            string        `yaml:"input"`
	Loop             bool          `yaml:"loop"`
	NumSamples       int           `yaml:"num_samples"`
	MockBearingDeg   float64       `yaml:"mock_bearing_deg"`
	MockAmplitude    float64       `yaml:"mock_amplitude"`
	Pace             time.Duration `yaml:"pace"`
	SpectrumEvery    int           `yaml:"spectrum_every"`
	WebAddr          string        `yaml:"web_addr"`
	MDNS             bool          `yaml:"mdns"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
}

// configPath resolves --config or AOA_CONFIG ahead of the full parse, since
// the file supplies the defaults for every other flag.
func configPath(args []string, lookup func(string) (string, bool)) (string, error) {
	path := envString(lookup, "AOA_CONFIG", defaultConfigPath)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return "", errors.New("flag needs an argument: --config")
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		}
	}
	return path, nil
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := pflag.NewFlagSet("aoa", pflag.ContinueOnError)
	fs.StringVar(&cfg.configPath, "config", envString(lookup, "AOA_CONFIG", defaultConfigPath), "Persistent YAML config file")
	fs.Float64Var(&cfg.sampleRate, "sample-rate", envFloat(lookup, "AOA_SAMPLE_RATE", defaults.SampleRate), "Sample rate in Hz")
	fs.DurationVar(&cfg.dwellTime, "dwell-time", envDuration(lookup, "AOA_DWELL_TIME", defaults.DwellTime), "Switch dwell time per antenna")
	fs.DurationVar(&cfg.settlingTime, "settling-time", envDuration(lookup, "AOA_SETTLING_TIME", defaults.SettlingTime), "Samples excluded after each switch")
	fs.Float64Var(&cfg.threshold, "threshold", envFloat(lookup, "AOA_THRESHOLD", defaults.Threshold), "Signal presence power threshold")
	fs.StringVar(&cfg.serialPort, "serial-port", envString(lookup, "AOA_SERIAL_PORT", defaults.SerialPort), "Switch board serial device (empty disables hardware control)")
	fs.IntVar(&cfg.baudRate, "baud-rate", envInt(lookup, "AOA_BAUD_RATE", defaults.BaudRate), "Switch board baud rate")
	fs.IntVar(&cfg.maxAntennas, "max-antennas", envInt(lookup, "AOA_MAX_ANTENNAS", defaults.MaxAntennas), "Antennas in the switch rotation")
	fs.Float64Var(&cfg.antennaOffset, "antenna-offset-deg", envFloat(lookup, "AOA_ANTENNA_OFFSET_DEG", defaults.AntennaOffsetDeg), "Angle of antenna 0 in degrees")
	fs.StringVar(&cfg.source, "source", envString(lookup, "AOA_SOURCE", defaults.Source), "Sample source (mock|file)")
	fs.StringVar(&cfg.input, "input", envString(lookup, "AOA_INPUT", defaults.Input), "cf32 capture for the file source")
	fs.BoolVar(&cfg.loop, "loop", envBool(lookup, "AOA_LOOP", defaults.Loop), "Rewind the capture at end of file")
	fs.StringVar(&cfg.output, "output", envString(lookup, "AOA_OUTPUT", ""), "Optional cf32 file receiving the estimate stream")
	fs.IntVar(&cfg.numSamples, "num-samples", envInt(lookup, "AOA_NUM_SAMPLES", defaults.NumSamples), "Samples per RX call")
	fs.Float64Var(&cfg.mockBearing, "mock-bearing-deg", envFloat(lookup, "AOA_MOCK_BEARING_DEG", defaults.MockBearingDeg), "Mock emitter bearing in degrees")
	fs.Float64Var(&cfg.mockAmplitude, "mock-amplitude", envFloat(lookup, "AOA_MOCK_AMPLITUDE", defaults.MockAmplitude), "Mock carrier amplitude")
	fs.IntVar(&cfg.mockDropEvery, "mock-drop-every", envInt(lookup, "AOA_MOCK_DROP_EVERY", 0), "Mock loses every n-th buffer (0 disables)")
	fs.DurationVar(&cfg.pace, "pace", envDuration(lookup, "AOA_PACE", defaults.Pace), "Minimum interval between RX calls")
	fs.IntVar(&cfg.spectrumEvery, "spectrum-every", envInt(lookup, "AOA_SPECTRUM_EVERY", defaults.SpectrumEvery), "Push a spectrum snapshot every n buffers (0 disables)")
	fs.StringVar(&cfg.webAddr, "web-addr", envString(lookup, "AOA_WEB_ADDR", defaults.WebAddr), "Optional web telemetry listen address (e.g. :8080)")
	fs.BoolVar(&cfg.mdns, "mdns", envBool(lookup, "AOA_MDNS", defaults.MDNS), "Advertise the web interface over mDNS")
	fs.StringVar(&cfg.mdnsInstance, "mdns-instance", envString(lookup, "AOA_MDNS_INSTANCE", ""), "mDNS instance name (defaults to aoa on <hostname>)")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "AOA_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.logFormat, "log-format", envString(lookup, "AOA_LOG_FORMAT", defaults.LogFormat), "Log format (text|json|logfmt)")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	if fs.NArg() > 0 {
		return cliConfig{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

func (c cliConfig) blockConfig() aoa.Config {
	return aoa.Config{
		SampleRate:       c.sampleRate,
		DwellTime:        c.dwellTime,
		Threshold:        c.threshold,
		SerialPort:       c.serialPort,
		BaudRate:         c.baudRate,
		MaxAntennas:      c.maxAntennas,
		AntennaOffsetDeg: c.antennaOffset,
		SettlingTime:     c.settlingTime,
	}
}

func (c cliConfig) sourceConfig() sdr.Config {
	return sdr.Config{
		SampleRate: c.sampleRate,
		NumSamples: c.numSamples,
		Antennas:   c.maxAntennas,
		Dwell:      c.dwellTime,
		Settling:   c.settlingTime,
		OffsetDeg:  c.antennaOffset,
		BearingDeg: c.mockBearing,
		Amplitude:  c.mockAmplitude,
		DropEvery:  c.mockDropEvery,
		Seed:       time.Now().UnixNano(),
		Path:       c.input,
		Loop:       c.loop,
	}
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		SampleRate:       cfg.sampleRate,
		DwellTime:        cfg.dwellTime,
		SettlingTime:     cfg.settlingTime,
		Threshold:        cfg.threshold,
		SerialPort:       cfg.serialPort,
		BaudRate:         cfg.baudRate,
		MaxAntennas:      cfg.maxAntennas,
		AntennaOffsetDeg: cfg.antennaOffset,
		Source:           cfg.source,
		Input:            cfg.input,
		Loop:             cfg.loop,
		NumSamples:       cfg.numSamples,
		MockBearingDeg:   cfg.mockBearing,
		MockAmplitude:    cfg.mockAmplitude,
		Pace:             cfg.pace,
		SpectrumEvery:    cfg.spectrumEvery,
		WebAddr:          cfg.webAddr,
		MDNS:             cfg.mdns,
		LogLevel:         cfg.logLevel,
		LogFormat:        cfg.logFormat,
	}
}

func loadOrCreateConfig(path string) (persistentConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultPersistentConfig()
			if saveErr := saveConfig(path, cfg); saveErr != nil {
				return persistentConfig{}, saveErr
			}
			return cfg, nil
		}
		return persistentConfig{}, err
	}
	defer f.Close()

	// Keys missing from the file keep their defaults.
	cfg := defaultPersistentConfig()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return persistentConfig{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg persistentConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultPersistentConfig() persistentConfig {
	block := aoa.DefaultConfig()
	return persistentConfig{
		SampleRate:       block.SampleRate,
		DwellTime:        block.DwellTime,
		SettlingTime:     block.SettlingTime,
		Threshold:        block.Threshold,
		SerialPort:       "",
		BaudRate:         block.BaudRate,
		MaxAntennas:      block.MaxAntennas,
		AntennaOffsetDeg: block.AntennaOffsetDeg,
		Source:           "mock",
		NumSamples:       1 << 14,
		MockBearingDeg:   45,
		MockAmplitude:    1,
		Pace:             2 * time.Millisecond,
		SpectrumEvery:    50,
		WebAddr:          ":8080",
		MDNS:             false,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

func envFloat(lookup func(string) (string, bool), key string, def float64) float64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(lookup func(string) (string, bool), key string, def bool) bool {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func envDuration(lookup func(string) (string, bool), key string, def time.Duration) time.Duration {
	if val, ok := lookup(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}
