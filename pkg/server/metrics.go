package server

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muddy-beach/beachmud/pkg/game"
)

// Metrics holds Prometheus metric descriptors for the game server.
type Metrics struct {
	world     *game.World
	startTime time.Time

	SessionsConnected prometheus.Gauge
	PlayersInGame     prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	CommandsTotal     prometheus.Counter
	TicksTotal        prometheus.Counter
	TickDuration      prometheus.Histogram
	uptimeSeconds     prometheus.Gauge
	memoryHeapBytes   prometheus.Gauge
	goroutines        prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics for the world.
func NewMetrics(w *game.World, startTime time.Time) *Metrics {
	m := &Metrics{
		world:     w,
		startTime: startTime,
		SessionsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beachmud_sessions_connected",
			Help: "Number of currently connected sessions.",
		}),
		PlayersInGame: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beachmud_players_ingame",
			Help: "Number of sessions bound to an in-game character.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beachmud_connections_total",
			Help: "Total connections since server start.",
		}),
		CommandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beachmud_commands_processed_total",
			Help: "Total in-game commands processed since server start.",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beachmud_ticks_total",
			Help: "Total world ticks since server start.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "beachmud_tick_duration_seconds",
			Help:    "Wall time spent per world tick.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beachmud_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beachmud_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beachmud_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	prometheus.MustRegister(
		m.SessionsConnected,
		m.PlayersInGame,
		m.ConnectionsTotal,
		m.CommandsTotal,
		m.TicksTotal,
		m.TickDuration,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)

	return m
}

// ObserveTick records one world tick. Installed as the world's OnTick hook
// so it runs on the tick thread, where the counts are consistent.
func (m *Metrics) ObserveTick(elapsed time.Duration) {
	m.TicksTotal.Inc()
	m.TickDuration.Observe(elapsed.Seconds())
	m.SessionsConnected.Set(float64(m.world.ClientCount()))
	m.PlayersInGame.Set(float64(len(m.world.PlayerNames())))
}

// update refreshes the process-level gauges.
func (m *Metrics) update() {
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that refreshes gauges before serving.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.update()
		promhttp.Handler().ServeHTTP(w, r)
	})
}

// Serve exposes /metrics on the given port. Blocks until the server fails;
// meant to run in its own goroutine.
func (m *Metrics) Serve(port int, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	addr := fmt.Sprintf(":%d", port)
	if log != nil {
		log.Info("metrics listening", zap.String("addr", addr))
	}
	return http.ListenAndServe(addr, mux)
}
