package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики сканера. Методы безопасны на nil.
type Metrics struct {
	ScanCycles     *prometheus.CounterVec   // profile
	ScanDuration   *prometheus.HistogramVec // profile
	Symbols        *prometheus.CounterVec   // profile, outcome
	FetchAttempts  *prometheus.CounterVec   // result
	Alerts         *prometheus.CounterVec   // profile, kind, result
	NotifyFailures prometheus.Counter
	WatchlistSize  prometheus.Gauge
	MonitorEnabled prometheus.Gauge
	TickerStream   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_scan_cycles_total",
			Help: "Completed scan cycles",
		}, []string{"profile"}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalbot_scan_duration_seconds",
			Help:    "Wall time of one scan cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"profile"}),
		Symbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_symbols_total",
			Help: "Symbols by scan outcome (scanned, filtered, skipped, unavailable)",
		}, []string{"profile", "outcome"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_fetch_attempts_total",
			Help: "Candle fetch attempts by result (ok, transient, permanent, short)",
		}, []string{"result"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_alerts_total",
			Help: "Alerts by gate result (fired, suppressed)",
		}, []string{"profile", "kind", "result"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_notify_failures_total",
			Help: "Alert deliveries that failed",
		}),
		WatchlistSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_watchlist_size",
			Help: "Symbols in the monitor watchlist",
		}),
		MonitorEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_monitor_enabled",
			Help: "1 when the watchlist monitor is on",
		}),
		TickerStream: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_ticker_stream_connected",
			Help: "1 when the ticker websocket is connected",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ScanCycles,
			m.ScanDuration,
			m.Symbols,
			m.FetchAttempts,
			m.Alerts,
			m.NotifyFailures,
			m.WatchlistSize,
			m.MonitorEnabled,
			m.TickerStream,
		)
	}
	return m
}

func (m *Metrics) ScanFinished(profile string, d time.Duration) {
	if m == nil {
		return
	}
	m.ScanCycles.WithLabelValues(profile).Inc()
	m.ScanDuration.WithLabelValues(profile).Observe(d.Seconds())
}

func (m *Metrics) Symbol(profile, outcome string) {
	if m == nil {
		return
	}
	m.Symbols.WithLabelValues(profile, outcome).Inc()
}

func (m *Metrics) FetchAttempt(result string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) Alert(profile, kind string, fired bool) {
	if m == nil {
		return
	}
	result := "suppressed"
	if fired {
		result = "fired"
	}
	m.Alerts.WithLabelValues(profile, kind, result).Inc()
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) SetWatchlist(n int) {
	if m == nil {
		return
	}
	m.WatchlistSize.Set(float64(n))
}

func (m *Metrics) SetMonitor(on bool) {
	if m == nil {
		return
	}
	m.MonitorEnabled.Set(boolGauge(on))
}

func (m *Metrics) SetTickerStream(connected bool) {
	if m == nil {
		return
	}
	m.TickerStream.Set(boolGauge(connected))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
