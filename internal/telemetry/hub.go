package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rjboer/GoAOA/internal/aoa"
	"github.com/rjboer/GoAOA/internal/logging"
)

// Sample is one arrival estimate as published to telemetry consumers.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	AngleDeg  float64   `json:"angleDeg"`
	Magnitude float64   `json:"magnitude"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Phase     string    `json:"phase"`
	Stats     aoa.Stats `json:"stats"`
}

// ConfigView is the read-only block configuration exposed over HTTP.
type ConfigView struct {
	SampleRateHz      float64 `json:"sampleRateHz"`
	DwellUs           float64 `json:"dwellUs"`
	SettlingUs        float64 `json:"settlingUs"`
	Threshold         float64 `json:"threshold"`
	Antennas          int     `json:"antennas"`
	AntennaOffsetDeg  float64 `json:"antennaOffsetDeg"`
	HardwareControl   bool    `json:"hardwareControl"`
	SamplesPerAntenna int     `json:"samplesPerAntenna"`
	SettlingSamples   int     `json:"settlingSamples"`
	FrameSize         int     `json:"frameSize"`
	GapThreshold      int     `json:"gapThreshold"`
}

// NewConfigView flattens a block configuration and its geometry.
func NewConfigView(cfg aoa.Config, g aoa.Geometry) ConfigView {
	return ConfigView{
		SampleRateHz:      cfg.SampleRate,
		DwellUs:           float64(cfg.DwellTime) / float64(time.Microsecond),
		SettlingUs:        float64(cfg.SettlingTime) / float64(time.Microsecond),
		Threshold:         cfg.Threshold,
		Antennas:          cfg.MaxAntennas,
		AntennaOffsetDeg:  cfg.AntennaOffsetDeg,
		HardwareControl:   cfg.SerialPort != "",
		SamplesPerAntenna: g.SamplesPerAntenna,
		SettlingSamples:   g.SettlingSamples,
		FrameSize:         g.FrameSize,
		GapThreshold:      g.GapThreshold,
	}
}

// Spectrum is a snapshot of the input spectrum in dB full scale.
type Spectrum struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Bins      []float64 `json:"bins"`
}

// Hub keeps the latest estimate and fans updates out to subscribers. Only
// the most recent sample is retained.
type Hub struct {
	mu          sync.RWMutex
	latest      Sample
	hasLatest   bool
	spectrum    Spectrum
	config      ConfigView
	subscribers map[chan Sample]struct{}
	logger      logging.Logger
}

// NewHub builds a telemetry hub serving cfg.
func NewHub(cfg ConfigView, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		config:      cfg,
		subscribers: make(map[chan Sample]struct{}),
		logger:      logger.With(logging.Field{Key: "subsystem", Value: "telemetry"}),
	}
}

// Report implements Reporter, replacing the held sample.
func (h *Hub) Report(sample Sample) {
	h.mu.Lock()
	h.latest = sample
	h.hasLatest = true
	for ch := range h.subscribers {
		select {
		case ch <- sample:
		default:
		}
	}
	h.mu.Unlock()
}

// Latest returns the most recent sample, if any.
func (h *Hub) Latest() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasLatest
}

// UpdateSpectrum replaces the spectrum snapshot.
func (h *Hub) UpdateSpectrum(db []float64, source string) {
	bins := make([]float64, len(db))
	copy(bins, db)
	h.mu.Lock()
	h.spectrum = Spectrum{Timestamp: time.Now(), Source: source, Bins: bins}
	h.mu.Unlock()
}

// SpectrumSnapshot returns the latest spectrum snapshot.
func (h *Hub) SpectrumSnapshot() Spectrum {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.spectrum
}

// ConfigSnapshot returns the configuration the hub serves.
func (h *Hub) ConfigSnapshot() ConfigView {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Subscribe registers a listener for live updates.
func (h *Hub) Subscribe() (chan Sample, func()) {
	ch := make(chan Sample, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		close(ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sample, ok := h.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, sample)
}

func (h *Hub) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "configuration is fixed at startup", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.ConfigSnapshot())
}

func (h *Hub) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.SpectrumSnapshot())
}

func (h *Hub) handleLive(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.Subscribe()
	defer cancel()

	// send the held estimate for immediate display
	if sample, ok := h.Latest(); ok {
		h.writeEvent(w, sample)
	}
	flusher.Flush()

	for {
		select {
		case sample, ok := <-ch:
			if !ok {
				return
			}
			h.writeEvent(w, sample)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Hub) writeEvent(w http.ResponseWriter, sample Sample) {
	payload, err := json.Marshal(sample)
	if err != nil {
		h.logger.Error("marshal live sample failed", logging.Field{Key: "error", Value: err})
		return
	}
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
