package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics инкапсулирует Prometheus-метрики мира.
// Все методы безопасны для nil-получателя, метрики можно не подключать.
type Metrics struct {
	residentChunks prometheus.Gauge
	residentBytes  prometheus.Gauge
	pendingChunks  prometheus.Gauge
	generated      prometheus.Counter
	evicted        *prometheus.CounterVec
	meshed         prometheus.Counter
	edits          prometheus.Counter
	meshFaces      prometheus.Histogram
	updateDuration prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg (если reg != nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		residentChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "resident_chunks",
			Help:      "Число чанков в памяти.",
		}),
		residentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "resident_bytes",
			Help:      "Оценка памяти, занятой чанками и мешами.",
		}),
		pendingChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "pending_chunks",
			Help:      "Нужные, но ещё не сгенерированные или не построенные чанки.",
		}),
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunks_generated_total",
			Help:      "Сгенерированных чанков.",
		}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunks_evicted_total",
			Help:      "Выгруженных чанков по причине.",
		}, []string{"reason"}),
		meshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "meshes_built_total",
			Help:      "Построенных мешей.",
		}),
		edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "edits_applied_total",
			Help:      "Применённых правок блоков.",
		}),
		meshFaces: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "mesh_faces",
			Help:      "Число граней в построенном меше.",
			Buckets:   prometheus.ExponentialBuckets(16, 2, 12),
		}),
		updateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "update_duration_seconds",
			Help:      "Длительность одного вызова Update.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.residentChunks, m.residentBytes, m.pendingChunks,
			m.generated, m.evicted, m.meshed, m.edits,
			m.meshFaces, m.updateDuration,
		)
	}
	return m
}

func (m *Metrics) chunkGenerated() {
	if m != nil {
		m.generated.Inc()
	}
}

func (m *Metrics) chunkEvicted(reason string) {
	if m != nil {
		m.evicted.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) meshBuilt(faces int) {
	if m != nil {
		m.meshed.Inc()
		m.meshFaces.Observe(float64(faces))
	}
}

func (m *Metrics) editApplied() {
	if m != nil {
		m.edits.Inc()
	}
}

func (m *Metrics) observeResidency(chunks, bytes, pending int) {
	if m != nil {
		m.residentChunks.Set(float64(chunks))
		m.residentBytes.Set(float64(bytes))
		m.pendingChunks.Set(float64(pending))
	}
}

func (m *Metrics) observeUpdate(seconds float64) {
	if m != nil {
		m.updateDuration.Observe(seconds)
	}
}
