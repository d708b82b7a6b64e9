// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

func newTestMonitor() *Monitor {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewMonitor(l)
}

// ============================================================
// Observation Tests
// ============================================================

func TestObserveValues(t *testing.T) {
	m := newTestMonitor()
	v := sen6x.Values{Variant: sen6x.SEN66, MassPM2p5: 7.5, Humidity: 41, CO2: 800, VOC: 100}

	m.ObserveValues("ABC123", v, nil, 20*time.Millisecond)

	if got := testutil.ToFloat64(m.Measurement.WithLabelValues("SEN66", "ABC123", "pm2_5")); got != 7.5 {
		t.Errorf("expected pm2_5 7.5, got %v", got)
	}
	if got := testutil.ToFloat64(m.Measurement.WithLabelValues("SEN66", "ABC123", "co2")); got != 800 {
		t.Errorf("expected co2 800, got %v", got)
	}
	if got := testutil.ToFloat64(m.ReadingsTotal); got != 1 {
		t.Errorf("expected 1 reading, got %v", got)
	}
	if got := testutil.ToFloat64(m.Up); got != 1 {
		t.Errorf("expected up=1, got %v", got)
	}
	if !m.Healthy() {
		t.Error("monitor should be healthy after a reading")
	}
}

func TestObserveValues_OnlyVariantFields(t *testing.T) {
	m := newTestMonitor()
	m.ObserveValues("X", sen6x.Values{Variant: sen6x.SEN63C}, nil, time.Millisecond)

	// SEN63C: 4 mass, RH, T, CO2
	if n := testutil.CollectAndCount(m.Measurement); n != 7 {
		t.Errorf("expected 7 series, got %d", n)
	}
}

func TestObserveValues_Anomalies(t *testing.T) {
	m := newTestMonitor()
	v := sen6x.Values{Variant: sen6x.SEN66, Humidity: 120}
	anomalies := sen6x.ValidateValues(v)

	m.ObserveValues("X", v, anomalies, time.Millisecond)

	if got := testutil.ToFloat64(m.Anomalies.WithLabelValues("humidity")); got != 1 {
		t.Errorf("expected one humidity anomaly, got %v", got)
	}
}

func TestObserveError(t *testing.T) {
	m := newTestMonitor()
	m.ObserveValues("X", sen6x.Values{Variant: sen6x.SEN66}, nil, time.Millisecond)

	m.ObserveError(sen6x.ErrTimeout)
	m.ObserveError(sen6x.ErrTimeout)

	if got := testutil.ToFloat64(m.ReadErrors.WithLabelValues("0x50")); got != 2 {
		t.Errorf("expected 2 timeouts, got %v", got)
	}
	if got := testutil.ToFloat64(m.Up); got != 0 {
		t.Errorf("expected up=0, got %v", got)
	}
	if m.Healthy() {
		t.Error("monitor should be unhealthy after an error")
	}
}

func TestSetStatus(t *testing.T) {
	m := newTestMonitor()
	m.SetStatus(sen6x.StatusFanError | sen6x.StatusPMError)

	if n := testutil.CollectAndCount(m.DeviceStatus); n != len(sen6x.StatusFlagNames()) {
		t.Errorf("expected every flag exported, got %d series", n)
	}
	if got := testutil.ToFloat64(m.DeviceStatus.WithLabelValues("FAN")); got != 1 {
		t.Errorf("FAN should be raised, got %v", got)
	}
	if got := testutil.ToFloat64(m.DeviceStatus.WithLabelValues("GAS")); got != 0 {
		t.Errorf("GAS should be clear, got %v", got)
	}
}

// ============================================================
// HTTP Tests
// ============================================================

func TestHandler_Health(t *testing.T) {
	m := newTestMonitor()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the first reading, got %d", resp.StatusCode)
	}

	m.ObserveValues("X", sen6x.Values{Variant: sen6x.SEN66}, nil, time.Millisecond)

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHandler_Metrics(t *testing.T) {
	m := newTestMonitor()
	m.ObserveValues("ABC", sen6x.Values{Variant: sen6x.SEN68, HCHO: 12}, nil, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`sen6x_measurement{field="hcho",serial="ABC",variant="SEN68"} 12`,
		"sen6x_readings_total 1",
		"sen6x_up 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
