package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/rjboer/GoAOA/internal/aoa"
	"github.com/rjboer/GoAOA/internal/app"
	"github.com/rjboer/GoAOA/internal/logging"
	"github.com/rjboer/GoAOA/internal/mdns"
	"github.com/rjboer/GoAOA/internal/sdr"
	"github.com/rjboer/GoAOA/internal/telemetry"
)

func main() {
	if err := run(os.Args[1:], os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "aoa: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, lookup func(string) (string, bool)) error {
	path, err := configPath(args, lookup)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	persistentCfg, err := loadOrCreateConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := parseConfig(args, lookup, persistentCfg)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	blockCfg := cfg.blockConfig()
	geometry, err := aoa.NewGeometry(blockCfg)
	if err != nil {
		return err
	}
	if err := saveConfig(path, persistentFromCLI(cfg)); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := selectSource(cfg)
	if err != nil {
		return fmt.Errorf("select source: %w", err)
	}

	var output io.Writer
	if cfg.output != "" {
		f, err := os.Create(cfg.output)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		output = f
	}

	logger.Info("starting",
		logging.Field{Key: "source", Value: cfg.source},
		logging.Field{Key: "sample_rate", Value: humanize.SI(cfg.sampleRate, "Sa/s")},
		logging.Field{Key: "dwell", Value: humanize.SI(cfg.dwellTime.Seconds(), "s")},
		logging.Field{Key: "settling", Value: humanize.SI(cfg.settlingTime.Seconds(), "s")},
		logging.Field{Key: "antennas", Value: cfg.maxAntennas},
		logging.Field{Key: "config", Value: path},
	)

	var reporters []telemetry.Reporter
	if cfg.webAddr != "" {
		hub := telemetry.NewHub(telemetry.NewConfigView(blockCfg, geometry), logger)
		reporters = append(reporters, hub)
		web := telemetry.NewWebServer(cfg.webAddr, hub, logger)
		go web.Start(ctx)
		logger.Info("web interface", logging.Field{Key: "url", Value: "http://localhost" + cfg.webAddr})
		if cfg.mdns {
			advertise(ctx, cfg, web.Port(), logger)
		}
	} else {
		reporters = append(reporters, telemetry.NewStdoutReporter(logger))
	}

	ctrl := app.OpenController(ctx, blockCfg, logger)
	runner, err := app.NewRunner(source, cfg.sourceConfig(), ctrl, telemetry.MultiReporter(reporters), logger, app.Config{
		Block:         blockCfg,
		Pace:          cfg.pace,
		SpectrumEvery: cfg.spectrumEvery,
		Output:        output,
	})
	if err != nil {
		ctrl.Close()
		return err
	}
	defer runner.Close()

	if err := runner.Init(ctx); err != nil {
		return fmt.Errorf("init runner: %w", err)
	}

	logger.Info("running (Ctrl+C to stop)")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func newLogger(cfg cliConfig, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format, out), nil
}

func selectSource(cfg cliConfig) (sdr.Source, error) {
	switch cfg.source {
	case "mock":
		return sdr.NewMock(), nil
	case "file":
		if cfg.input == "" {
			return nil, errors.New("file source needs --input")
		}
		return sdr.NewFile(), nil
	default:
		return nil, fmt.Errorf("unknown source %s", cfg.source)
	}
}

func advertise(ctx context.Context, cfg cliConfig, port int, logger logging.Logger) {
	instance := cfg.mdnsInstance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		instance = "aoa on " + host
	}
	txt := []string{
		fmt.Sprintf("antennas=%d", cfg.maxAntennas),
		fmt.Sprintf("source=%s", cfg.source),
	}
	if err := mdns.Advertise(ctx, instance, port, txt); err != nil {
		logger.Warn("mdns advertise failed", logging.Field{Key: "error", Value: err})
		return
	}
	logger.Info("mdns advertised",
		logging.Field{Key: "instance", Value: instance},
		logging.Field{Key: "service", Value: mdns.Service},
		logging.Field{Key: "port", Value: port},
	)
}
