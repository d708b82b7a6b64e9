// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package monitor exposes sensor readings and exporter health as
// Prometheus metrics.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

const namespace = "sen6x"

// Monitor owns the exporter metrics and the HTTP server that serves them
type Monitor struct {
	log      logrus.FieldLogger
	registry *prometheus.Registry
	healthy  atomic.Bool

	Measurement    *prometheus.GaugeVec
	ReadingsTotal  prometheus.Counter
	ReadErrors     *prometheus.CounterVec
	Anomalies      *prometheus.CounterVec
	ReadDuration   prometheus.Histogram
	Up             prometheus.Gauge
	DeviceStatus   *prometheus.GaugeVec
	BridgeUptime   prometheus.Gauge
	Reconnects     prometheus.Counter
	GoroutineCount prometheus.Gauge
	MemoryUsage    prometheus.Gauge
}

// NewMonitor creates the metrics and registers them on a private registry
func NewMonitor(log logrus.FieldLogger) *Monitor {
	m := &Monitor{
		log:      log,
		registry: prometheus.NewRegistry(),

		Measurement: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "measurement",
			Help:      "Latest measured value per field",
		}, []string{"variant", "serial", "field"}),

		ReadingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Readings taken",
		}),

		ReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Failed transactions by error code",
		}, []string{"code"}),

		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Implausible values by field",
		}, []string{"type"}),

		ReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "read_duration_seconds",
			Help:      "Time to read one measurement",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "1 if the last reading succeeded",
		}),

		DeviceStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_status",
			Help:      "Device status flags (1 = raised)",
		}, []string{"flag"}),

		BridgeUptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_uptime_seconds",
			Help:      "Bridge uptime reported by the last ping",
		}),

		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Transport reconnections",
		}),

		GoroutineCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exporter_goroutines",
			Help:      "Current goroutine count",
		}),

		MemoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exporter_memory_usage_bytes",
			Help:      "Allocated heap memory",
		}),
	}

	m.registry.MustRegister(
		m.Measurement,
		m.ReadingsTotal,
		m.ReadErrors,
		m.Anomalies,
		m.ReadDuration,
		m.Up,
		m.DeviceStatus,
		m.BridgeUptime,
		m.Reconnects,
		m.GoroutineCount,
		m.MemoryUsage,
	)

	return m
}

// ObserveValues records a successful reading
func (m *Monitor) ObserveValues(serial string, v sen6x.Values, anomalies []sen6x.ValidationError, took time.Duration) {
	m.ReadingsTotal.Inc()
	m.ReadDuration.Observe(took.Seconds())
	m.Up.Set(1)
	m.healthy.Store(true)

	variant := v.Variant.String()
	for name, value := range v.Map() {
		m.Measurement.WithLabelValues(variant, serial, name).Set(value)
	}

	for _, a := range anomalies {
		m.Anomalies.WithLabelValues(anomalyLabel(a.Type)).Inc()
	}
}

// ObserveError records a failed reading
func (m *Monitor) ObserveError(err error) {
	m.Up.Set(0)
	m.healthy.Store(false)
	m.ReadErrors.WithLabelValues(fmt.Sprintf("0x%02X", uint8(sen6x.CodeOf(err)))).Inc()
}

// SetStatus publishes every status flag, raised or not
func (m *Monitor) SetStatus(s sen6x.Status) {
	raised := make(map[string]bool)
	for _, name := range s.Flags() {
		raised[name] = true
	}
	for _, name := range sen6x.StatusFlagNames() {
		value := 0.0
		if raised[name] {
			value = 1
		}
		m.DeviceStatus.WithLabelValues(name).Set(value)
	}
}

// Healthy reports whether the last reading succeeded
func (m *Monitor) Healthy() bool {
	return m.healthy.Load()
}

// Handler serves /metrics and /health
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !m.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("DOWN"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// StartMetricsServer serves Handler on port until ctx is done
func (m *Monitor) StartMetricsServer(ctx context.Context, port int) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.log.Infof("Metrics server listening on %s", srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.Errorf("Metrics server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	return srv
}

// StartRuntimeMonitor samples goroutine and memory usage every 10 seconds
func (m *Monitor) StartRuntimeMonitor(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			m.GoroutineCount.Set(float64(runtime.NumGoroutine()))

			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			m.MemoryUsage.Set(float64(memStats.Alloc))

			m.log.Debugf("Goroutines: %d, memory: %.2f MB",
				runtime.NumGoroutine(),
				float64(memStats.Alloc)/1024/1024,
			)
		}
	}()
}

func anomalyLabel(t sen6x.AnomalyType) string {
	switch t {
	case sen6x.AnomalyHumidity:
		return "humidity"
	case sen6x.AnomalyTemperature:
		return "temperature"
	case sen6x.AnomalyPMOrder:
		return "pm_order"
	case sen6x.AnomalyCO2:
		return "co2"
	case sen6x.AnomalyGasIndex:
		return "gas_index"
	case sen6x.AnomalyHCHO:
		return "hcho"
	}
	return "other"
}
