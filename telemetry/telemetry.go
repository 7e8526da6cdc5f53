package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/armon/go-metrics"
	prometheusMetrics "github.com/armon/go-metrics/prometheus"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TelemetryConfig struct {
	PrometheusAddr string // empty means disabled otherwise something like 0.0.0.0:5001
}

// Telemetry owns the metrics sinks and the prometheus endpoint.
type Telemetry struct {
	prometheusServer *http.Server
	inmem            *metrics.InmemSink
	config           TelemetryConfig
	logger           hclog.Logger
}

func NewTelemetry(config TelemetryConfig, logger hclog.Logger) *Telemetry {
	return &Telemetry{
		config: config,
		logger: logger,
	}
}

// Start installs the global metrics sinks. The in-memory sink is always
// installed so that /stats can report counters without prometheus.
func (t *Telemetry) Start() error {
	t.inmem = metrics.NewInmemSink(10*time.Second, time.Minute)

	sinks := metrics.FanoutSink{t.inmem}

	if t.config.PrometheusAddr != "" {
		promSink, err := prometheusMetrics.NewPrometheusSinkFrom(prometheusMetrics.PrometheusOpts{
			Name:       "token_bridge_prometheus_sink",
			Expiration: 0,
		})
		if err != nil {
			return err
		}

		sinks = append(sinks, promSink)
	}

	metricsConf := metrics.DefaultConfig("token_bridge")
	metricsConf.EnableHostname = false

	if _, err := metrics.NewGlobal(metricsConf, sinks); err != nil {
		return err
	}

	if t.config.PrometheusAddr != "" {
		t.prometheusServer = setupPrometheus(t.config.PrometheusAddr)

		go t.startPrometheus()
	}

	return nil
}

func (t *Telemetry) Close(ctx context.Context) error {
	if t.prometheusServer != nil {
		t.logger.Info("Prometheus server stopping", "addr", t.prometheusServer.Addr)

		if err := t.prometheusServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (t *Telemetry) IsEnabled() bool {
	return t.config.PrometheusAddr != ""
}

// Snapshot returns the current interval of the in-memory sink.
func (t *Telemetry) Snapshot() (*metrics.IntervalMetrics, error) {
	if t.inmem == nil {
		return nil, errors.New("telemetry not started")
	}

	data := t.inmem.Data()
	if len(data) == 0 {
		return nil, errors.New("no metrics collected yet")
	}

	return data[len(data)-1], nil
}

func (t *Telemetry) startPrometheus() {
	t.logger.Info("Prometheus server started", "addr", t.config.PrometheusAddr)

	if err := t.prometheusServer.ListenAndServe(); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("Prometheus server ListenAndServe error", "err", err)
		}
	}
}

func setupPrometheus(prometheusAddr string) *http.Server {
	return &http.Server{
		Addr: prometheusAddr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{},
			),
		),
		ReadHeaderTimeout: 60 * time.Second,
	}
}
