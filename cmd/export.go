// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/internal/monitor"
	"github.com/Thermoquad/sen6x/internal/storage"
	"github.com/Thermoquad/sen6x/pkg/bridge"
	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

// Housekeeping periods of the export loop
const (
	statusEvery     = time.Minute
	bridgePingEvery = time.Minute
	statsLogEvery   = 10 * time.Minute
	maxBackoff      = 30 * time.Second
)

var (
	exportInterval    time.Duration
	exportMetricsPort int
	exportRedisAddr   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run as a daemon exporting readings to Prometheus and Redis",
	Long: `Poll the sensor continuously and export every reading.

Readings are served as Prometheus metrics on /metrics, with a /health endpoint
that fails while the sensor cannot be read. When Redis is enabled, each reading
is also published as JSON on a channel and kept in a capped history list.

Lost connections are re-established with exponential backoff. Settings come
from the --config file; the flags below override it.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().DurationVar(&exportInterval, "interval", 0, "Polling interval (overrides config)")
	exportCmd.Flags().IntVar(&exportMetricsPort, "metrics-port", 0, "Metrics port (overrides config)")
	exportCmd.Flags().StringVar(&exportRedisAddr, "redis", "", "Redis address, enables publishing (overrides config)")
}

// exporter ties one sensor session to the metrics and the message queue
type exporter struct {
	cfg     *Config
	log     logrus.FieldLogger
	monitor *monitor.Monitor
	queue   *storage.MessageQueue // nil when Redis is disabled
	stats   *sen6x.Statistics

	session *Session
	serial  string
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportInterval > 0 {
		cfg.Export.Interval = exportInterval
	}
	if exportMetricsPort > 0 {
		cfg.Monitor.MetricsPort = exportMetricsPort
	}
	if exportRedisAddr != "" {
		cfg.Redis.Enabled = true
		cfg.Redis.Addr = exportRedisAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &exporter{
		cfg:     cfg,
		log:     logger,
		monitor: monitor.NewMonitor(logger),
		stats:   sen6x.NewStatistics(),
	}

	if cfg.Monitor.Enabled {
		e.monitor.StartMetricsServer(ctx, cfg.Monitor.MetricsPort)
		e.monitor.StartRuntimeMonitor(ctx)
	}

	if cfg.Redis.Enabled {
		queue, err := storage.NewMessageQueue(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}, cfg.Redis.Channel, cfg.Redis.History, logger)
		if err != nil {
			return err
		}
		defer queue.Close()
		e.queue = queue
	}

	logger.WithFields(logrus.Fields{
		"interval": cfg.Export.Interval,
		"redis":    cfg.Redis.Enabled,
	}).Info("Exporter starting")

	err := e.run(ctx)
	e.closeSession()
	logger.Info("Exporter stopped\n" + e.stats.String())
	return err
}

// run keeps a session open and polls it until ctx is done
func (e *exporter) run(ctx context.Context) error {
	backoff := time.Second

	for {
		if e.session == nil {
			if err := e.connect(); err != nil {
				e.log.WithError(err).Warnf("Connection failed, retrying in %v", backoff)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}

		if lost := e.poll(ctx); !lost {
			return nil
		}
		e.monitor.Reconnects.Inc()
		e.closeSession()
	}
}

// connect opens the session and reads the serial number for labels
func (e *exporter) connect() error {
	s, err := OpenSession(e.cfg.Device)
	if err != nil {
		return err
	}

	serial, err := s.Device.SerialNumber()
	if err != nil {
		s.Close()
		return err
	}

	e.session = s
	e.serial = serial
	e.log.WithFields(logrus.Fields{
		"connection": s.Info,
		"variant":    s.Device.Variant(),
		"serial":     serial,
	}).Info("Sensor connected")
	return nil
}

func (e *exporter) closeSession() {
	if e.session == nil {
		return
	}
	if err := e.session.Device.Stop(); err != nil {
		e.log.WithError(err).Debug("Failed to stop measurement")
	}
	e.session.Close()
	e.session = nil
}

// poll reads on every tick. It returns true when the transport is lost and
// false when ctx is done.
func (e *exporter) poll(ctx context.Context) bool {
	ticker := time.NewTicker(e.cfg.Export.Interval)
	defer ticker.Stop()

	var lastStatus, lastPing, lastStats time.Time

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		if err := e.readOnce(ctx); err != nil && transportLost(err) {
			e.log.WithError(err).Warn("Transport lost")
			return true
		}

		now := time.Now()
		if now.Sub(lastStatus) >= statusEvery {
			lastStatus = now
			e.checkStatus()
		}
		if e.session.Bridge != nil && now.Sub(lastPing) >= bridgePingEvery {
			lastPing = now
			e.pingBridge(ctx)
		}
		if now.Sub(lastStats) >= statsLogEvery {
			lastStats = now
			e.stats.CalculateRates()
			e.log.WithFields(logrus.Fields{
				"readings": e.stats.TotalReadings,
				"valid":    e.stats.ValidReadings,
				"errors":   e.stats.Errors(),
			}).Info("Exporter statistics")
		}
	}
}

// readOnce takes one reading if the sensor has one ready and exports it
func (e *exporter) readOnce(ctx context.Context) error {
	d := e.session.Device
	start := time.Now()

	ready, err := d.DataReady()
	if err == nil && !ready {
		return nil
	}

	var v sen6x.Values
	if err == nil {
		v, err = d.Values()
	}
	if err != nil {
		e.stats.Update(err, nil)
		e.monitor.ObserveError(err)
		e.log.WithError(err).WithField("code", sen6x.CodeOf(err)).Warn("Read failed")
		return err
	}

	anomalies := sen6x.ValidateValues(v)
	e.stats.Update(nil, anomalies)
	e.monitor.ObserveValues(e.serial, v, anomalies, time.Since(start))
	for _, a := range anomalies {
		e.log.WithField("type", a.Type).Warn(a.Message)
	}
	e.log.Debug(sen6x.FormatValues(v))

	if e.queue != nil {
		if err := e.queue.Publish(ctx, storage.NewReading(e.serial, v, anomalies, start)); err != nil {
			e.log.WithError(err).Warn("Publish failed")
		}
	}
	return nil
}

// checkStatus exports the device status register without clearing it
func (e *exporter) checkStatus() {
	status, err := e.session.Device.PeekStatus()
	if err != nil && !errors.Is(err, sen6x.ErrOutOfRange) {
		e.log.WithError(err).Debug("Device status unavailable")
		return
	}
	e.monitor.SetStatus(status)
	if status != sen6x.StatusOK {
		e.log.WithField("status", status).Warn("Device reports errors")
	}
}

func (e *exporter) pingBridge(ctx context.Context) {
	uptime, err := e.session.Bridge.Ping(ctx)
	if err != nil {
		e.log.WithError(err).Warn("Bridge ping failed")
		return
	}
	e.monitor.BridgeUptime.Set(uptime.Seconds())
}

// transportLost reports whether err means the connection itself is gone
func transportLost(err error) bool {
	return errors.Is(err, bridge.ErrClosed) || errors.Is(err, ErrConnectionClosed)
}
