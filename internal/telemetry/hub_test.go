package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rjboer/GoAOA/internal/aoa"
	"github.com/rjboer/GoAOA/internal/logging"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cfg := aoa.DefaultConfig()
	g, err := aoa.NewGeometry(cfg)
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	return NewHub(NewConfigView(cfg, g), logging.New(logging.Debug, logging.Text, io.Discard))
}

func TestHandleLatestBeforeAndAfterReport(t *testing.T) {
	hub := newTestHub(t)

	rr := httptest.NewRecorder()
	hub.handleLatest(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 before any estimate, got %d", rr.Code)
	}

	hub.Report(Sample{AngleDeg: 12.5, Magnitude: 3})
	hub.Report(Sample{AngleDeg: 42, Magnitude: 7, Stats: aoa.Stats{Frames: 2}})

	rr = httptest.NewRecorder()
	hub.handleLatest(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got Sample
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AngleDeg != 42 || got.Stats.Frames != 2 {
		t.Fatalf("expected only the latest sample, got %+v", got)
	}
}

func TestHandleConfigIsReadOnly(t *testing.T) {
	hub := newTestHub(t)

	rr := httptest.NewRecorder()
	hub.handleConfig(rr, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	var cfg ConfigView
	if err := json.NewDecoder(rr.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.FrameSize != 2700 || cfg.GapThreshold != 337 || cfg.DwellUs != 45 {
		t.Fatalf("unexpected config view %+v", cfg)
	}

	rr = httptest.NewRecorder()
	hub.handleConfig(rr, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(`{}`)))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for config updates, got %d", rr.Code)
	}
}

func TestHandleSpectrum(t *testing.T) {
	hub := newTestHub(t)
	src := []float64{-10, -20, -30}
	hub.UpdateSpectrum(src, "input")
	src[0] = 0

	rr := httptest.NewRecorder()
	hub.handleSpectrum(rr, httptest.NewRequest(http.MethodGet, "/api/spectrum", nil))
	var snap Spectrum
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Source != "input" || len(snap.Bins) != 3 || snap.Bins[0] != -10 {
		t.Fatalf("unexpected spectrum %+v", snap)
	}
}

func TestSubscribeReceivesReports(t *testing.T) {
	hub := newTestHub(t)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Report(Sample{AngleDeg: 90})
	select {
	case s := <-ch:
		if s.AngleDeg != 90 {
			t.Fatalf("unexpected sample %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatalf("no sample delivered")
	}
}

func TestHandleLiveSendsHeldEstimate(t *testing.T) {
	hub := newTestHub(t)
	hub.Report(Sample{AngleDeg: -45})

	ctx, cancel := context.WithCancel(context.Background())
	rr := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		hub.handleLive(rr, httptest.NewRequest(http.MethodGet, "/api/live", nil).WithContext(ctx))
		close(done)
	}()
	cancel()
	<-done

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"angleDeg":-45`) {
		t.Fatalf("held estimate not streamed: %q", rr.Body.String())
	}
}

func TestMultiReporterFansOut(t *testing.T) {
	a, b := newTestHub(t), newTestHub(t)
	var buf bytes.Buffer
	m := MultiReporter{a, nil, b, NewStdoutReporter(logging.New(logging.Info, logging.Text, &buf))}

	m.Report(Sample{AngleDeg: 10})
	m.UpdateSpectrum([]float64{1}, "input")

	for i, hub := range []*Hub{a, b} {
		if s, ok := hub.Latest(); !ok || s.AngleDeg != 10 {
			t.Fatalf("hub %d missed the sample", i)
		}
		if len(hub.SpectrumSnapshot().Bins) != 1 {
			t.Fatalf("hub %d missed the spectrum", i)
		}
	}
	if !strings.Contains(buf.String(), "aoa estimate") {
		t.Fatalf("stdout reporter did not log: %q", buf.String())
	}
}

func TestMuxServesIndex(t *testing.T) {
	srv := httptest.NewServer(NewMux(newTestHub(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Angle of arrival") {
		t.Fatalf("unexpected index response %d", resp.StatusCode)
	}
}

func TestWebServerPort(t *testing.T) {
	hub := newTestHub(t)
	if p := NewWebServer(":8080", hub, nil).Port(); p != 8080 {
		t.Fatalf("expected 8080, got %d", p)
	}
	if p := NewWebServer("bogus", hub, nil).Port(); p != 0 {
		t.Fatalf("expected 0 for an address without port, got %d", p)
	}
}
