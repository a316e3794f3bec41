package telemetry

import (
	"github.com/rjboer/GoAOA/internal/logging"
)

// Reporter captures telemetry events.
type Reporter interface {
	Report(sample Sample)
}

// StdoutReporter logs every estimate.
type StdoutReporter struct {
	logger logging.Logger
}

// NewStdoutReporter builds a stdout reporter with the provided logger.
func NewStdoutReporter(logger logging.Logger) StdoutReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return StdoutReporter{logger: logger}
}

func (r StdoutReporter) Report(sample Sample) {
	logger := r.logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("aoa estimate",
		logging.Field{Key: "subsystem", Value: "telemetry"},
		logging.Field{Key: "angle_deg", Value: sample.AngleDeg},
		logging.Field{Key: "magnitude", Value: sample.Magnitude},
		logging.Field{Key: "frames", Value: sample.Stats.Frames},
		logging.Field{Key: "discarded", Value: sample.Stats.Discarded},
	)
}

// MultiReporter fans out telemetry to multiple destinations.
type MultiReporter []Reporter

// Report forwards telemetry to each configured reporter.
func (m MultiReporter) Report(sample Sample) {
	for _, r := range m {
		if r != nil {
			r.Report(sample)
		}
	}
}

// UpdateSpectrum forwards the snapshot to members that display spectra.
func (m MultiReporter) UpdateSpectrum(db []float64, source string) {
	for _, r := range m {
		if sink, ok := r.(interface {
			UpdateSpectrum(db []float64, source string)
		}); ok {
			sink.UpdateSpectrum(db, source)
		}
	}
}
