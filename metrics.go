package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const metricsShutdownTimeout = 5 * time.Second

// meterMetrics exposes the meter's accounting as Prometheus collectors.
// A nil *meterMetrics is valid and records nothing.
type meterMetrics struct {
	bytesTotal prometheus.Counter
	rate       prometheus.Gauge
	reports    prometheus.Counter
}

func newMeterMetrics(reg prometheus.Registerer) *meterMetrics {
	m := &meterMetrics{
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pipespeed",
			Name:      "bytes_total",
			Help:      "Bytes relayed from input to output",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pipespeed",
			Name:      "rate_bytes_per_second",
			Help:      "Transfer rate over the trailing window at the last report",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pipespeed",
			Name:      "reports_total",
			Help:      "Status lines emitted",
		}),
	}
	reg.MustRegister(m.bytesTotal, m.rate, m.reports)
	return m
}

func (m *meterMetrics) addBytes(n uint64) {
	if m == nil {
		return
	}
	m.bytesTotal.Add(float64(n))
}

func (m *meterMetrics) observeRate(bytesPerSec float64) {
	if m == nil {
		return
	}
	m.rate.Set(bytesPerSec)
	m.reports.Inc()
}

// startMetricsServer serves reg on addr/metrics until ctx is done.
// The listener is bound before returning so a bad address fails fast.
func startMetricsServer(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Msg("failed to shut down metrics server cleanly")
		}
	}()

	go func() {
		logger.Info().Str("addr", ln.Addr().String()).Msg("metrics endpoint listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()

	return ln.Addr(), nil
}
