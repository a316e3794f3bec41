package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rjboer/GoAOA/internal/aoa"
	"github.com/rjboer/GoAOA/internal/dsp"
	"github.com/rjboer/GoAOA/internal/logging"
	"github.com/rjboer/GoAOA/internal/sdr"
	"github.com/rjboer/GoAOA/internal/switcher"
	"github.com/rjboer/GoAOA/internal/telemetry"
)

// Config captures application level configuration.
type Config struct {
	Block aoa.Config

	// Pace is the minimum interval between RX calls; zero reads as fast as
	// the source delivers.
	Pace time.Duration

	// SpectrumEvery pushes a spectrum snapshot every n buffers when the
	// reporter accepts one; zero disables snapshots.
	SpectrumEvery int

	// Output, when set, receives the block's output stream as raw
	// little-endian float32 I/Q.
	Output io.Writer
}

// SpectrumSink is implemented by reporters that display the live spectrum.
type SpectrumSink interface {
	UpdateSpectrum(db []float64, source string)
}

// Runner wires a sample source through the AOA block into telemetry and owns
// the switch controller's lifecycle.
type Runner struct {
	source   sdr.Source
	srcCfg   sdr.Config
	ctrl     switcher.Controller
	reporter telemetry.Reporter
	logger   logging.Logger
	cfg      Config
	block    *aoa.Block
	out      []complex64
	buffers  int
	last     aoa.Stats
}

// NewRunner builds the block for cfg.Block. A nil controller means no
// hardware control.
func NewRunner(source sdr.Source, srcCfg sdr.Config, ctrl switcher.Controller, reporter telemetry.Reporter, logger logging.Logger, cfg Config) (*Runner, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if ctrl == nil {
		ctrl = switcher.Nop{}
	}
	block, err := aoa.New(cfg.Block)
	if err != nil {
		return nil, fmt.Errorf("build aoa block: %w", err)
	}
	return &Runner{
		source:   source,
		srcCfg:   srcCfg,
		ctrl:     ctrl,
		reporter: reporter,
		logger:   logger.With(logging.Field{Key: "subsystem", Value: "runner"}),
		cfg:      cfg,
		block:    block,
	}, nil
}

// Block exposes the underlying AOA block.
func (r *Runner) Block() *aoa.Block { return r.block }

// Init initializes the source and starts the switch rotation. Switch
// failures are logged; the block only relies on observed gaps.
func (r *Runner) Init(ctx context.Context) error {
	if err := r.source.Init(ctx, r.srcCfg); err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	if err := r.ctrl.SetDwellTime(r.cfg.Block.DwellTime); err != nil {
		r.logger.Warn("set dwell time failed", logging.Field{Key: "error", Value: err})
	}
	if err := r.ctrl.StartCycle(); err != nil {
		r.logger.Warn("start cycle failed", logging.Field{Key: "error", Value: err})
	}
	g := r.block.Geometry()
	r.logger.Info("block ready",
		logging.Field{Key: "samples_per_antenna", Value: g.SamplesPerAntenna},
		logging.Field{Key: "settling_samples", Value: g.SettlingSamples},
		logging.Field{Key: "frame_size", Value: g.FrameSize},
		logging.Field{Key: "gap_threshold", Value: g.GapThreshold},
	)
	return nil
}

// Run feeds buffers from the source through the block until the context is
// canceled or the source ends. A source reporting io.EOF ends the run
// cleanly.
func (r *Runner) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.cfg.Pace > 0 {
		ticker := time.NewTicker(r.cfg.Pace)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		buf, err := r.source.RX(ctx)
		var overflow *sdr.OverflowError
		switch {
		case errors.As(err, &overflow):
			r.block.Drop(overflow.Lost)
			r.logger.Warn("source overflow", logging.Field{Key: "lost", Value: overflow.Lost})
			continue
		case errors.Is(err, io.EOF):
			r.logger.Info("source exhausted", logging.Field{Key: "buffers", Value: r.buffers})
			return nil
		case err != nil:
			return fmt.Errorf("receive samples: %w", err)
		}
		if len(buf) == 0 {
			r.logger.Warn("received empty buffer")
			continue
		}
		if err := r.process(buf); err != nil {
			return err
		}
	}
}

func (r *Runner) process(buf []complex64) error {
	if cap(r.out) < len(buf) {
		r.out = make([]complex64, len(buf))
	}
	out := r.out[:len(buf)]
	r.block.Work(buf, out)
	r.buffers++

	if r.cfg.Output != nil {
		if _, err := r.cfg.Output.Write(sdr.EncodeIQ(out)); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	r.publish()
	if r.cfg.SpectrumEvery > 0 && r.buffers%r.cfg.SpectrumEvery == 0 {
		if sink, ok := r.reporter.(SpectrumSink); ok {
			sink.UpdateSpectrum(dsp.Spectrum(buf), "input")
		}
	}
	return nil
}

// publish reports once per finished frame, whether it produced an estimate
// or was discarded.
func (r *Runner) publish() {
	st := r.block.Stats()
	if st.Frames == r.last.Frames && st.Discarded == r.last.Discarded {
		return
	}
	if st.Discarded != r.last.Discarded {
		r.logger.Debug("frame discarded", logging.Field{Key: "discarded", Value: st.Discarded})
	}
	r.last = st
	if r.reporter == nil {
		return
	}
	est := r.block.Estimate()
	r.reporter.Report(telemetry.Sample{
		Timestamp: time.Now(),
		AngleDeg:  est.AngleDeg(),
		Magnitude: est.Magnitude(),
		X:         est.X(),
		Y:         est.Y(),
		Phase:     r.block.State().Phase.String(),
		Stats:     st,
	})
}

// Close parks the switch and releases the controller and source. Failures
// are logged and never returned; estimates already produced stay valid.
func (r *Runner) Close() {
	if err := r.ctrl.Close(); err != nil {
		r.logger.Debug("close controller failed", logging.Field{Key: "error", Value: err})
	}
	if err := r.source.Close(); err != nil {
		r.logger.Debug("close source failed", logging.Field{Key: "error", Value: err})
	}
}

// OpenController returns a serial controller for cfg.SerialPort, or Nop when
// no port is configured or it cannot be opened.
func OpenController(ctx context.Context, cfg aoa.Config, logger logging.Logger) switcher.Controller {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SerialPort == "" {
		logger.Info("no serial port configured, switch control disabled", logging.Field{Key: "subsystem", Value: "runner"})
		return switcher.Nop{}
	}
	ctrl, err := switcher.OpenSerial(ctx, switcher.SerialConfig{Device: cfg.SerialPort, Baud: cfg.BaudRate}, logger)
	if err != nil {
		logger.Warn("switch hardware unavailable, continuing without it",
			logging.Field{Key: "subsystem", Value: "runner"},
			logging.Field{Key: "error", Value: err},
		)
		return switcher.Nop{}
	}
	return ctrl
}
