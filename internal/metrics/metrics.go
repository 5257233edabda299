package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxel-sandbox/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sandbox"

// Metrics инкапсулирует Prometheus-метрики симуляции.
// Все методы безопасны для nil-получателя: симуляция может работать без метрик.
type Metrics struct {
	ticks        prometheus.Counter
	edits        *prometheus.CounterVec
	respawns     prometheus.Counter
	resets       *prometheus.CounterVec
	raycastSteps prometheus.Histogram
	worldBlocks  prometheus.Gauge
	generation   prometheus.Histogram
}

// New создаёт метрики и регистрирует их в reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Количество выполненных тиков симуляции.",
		}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "world_edits_total",
			Help:      "Правки мира игроком по типу операции.",
		}, []string{"op"}),
		respawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "respawns_total",
			Help:      "Сколько раз игрок упал ниже высоты смерти.",
		}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "world_resets_total",
			Help:      "Перегенерации мира по причине.",
		}, []string{"kind"}),
		raycastSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "raycast_steps",
			Help:      "Число шагов DDA на один рейкаст.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
		worldBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_blocks",
			Help:      "Количество твёрдых блоков в текущем мире.",
		}),
		generation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "world_generation_seconds",
			Help:      "Время генерации мира.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	reg.MustRegister(m.ticks, m.edits, m.respawns, m.resets, m.raycastSteps, m.worldBlocks, m.generation)
	return m
}

// IncTick отмечает выполненный тик
func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

// IncEdit отмечает правку мира (op: place / destroy)
func (m *Metrics) IncEdit(op string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(op).Inc()
}

// IncRespawn отмечает падение за пределы мира
func (m *Metrics) IncRespawn() {
	if m == nil {
		return
	}
	m.respawns.Inc()
}

// IncReset отмечает перегенерацию мира (kind: restart / new_location)
func (m *Metrics) IncReset(kind string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(kind).Inc()
}

// ObserveRaycast записывает число шагов рейкаста
func (m *Metrics) ObserveRaycast(steps int) {
	if m == nil {
		return
	}
	m.raycastSteps.Observe(float64(steps))
}

// AddWorldBlocks корректирует размер мира на delta
func (m *Metrics) AddWorldBlocks(delta int) {
	if m == nil {
		return
	}
	m.worldBlocks.Add(float64(delta))
}

// ObserveGeneration реализует world.GenerationObserver
func (m *Metrics) ObserveGeneration(d time.Duration, blocks int) {
	if m == nil {
		return
	}
	m.generation.Observe(d.Seconds())
	m.worldBlocks.Set(float64(blocks))
}

// Server HTTP-эндпоинт /metrics
type Server struct {
	srv *http.Server
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод неблокирующий: HTTP-сервер стартует в отдельной горутине.
func StartHTTP(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s := &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return s
}

// Stop останавливает HTTP-сервер
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
