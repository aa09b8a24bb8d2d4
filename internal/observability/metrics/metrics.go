package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for scheduling operations.
type BookingMetrics struct {
	operationsTotal *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	seededSlots     prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinik",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Booking engine mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "klinik",
			Subsystem: "scheduling",
			Name:      "operation_seconds",
			Help:      "Latency of booking engine mutations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		seededSlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "klinik",
			Subsystem: "scheduling",
			Name:      "seeded_slots_total",
			Help:      "Schedule slots inserted by seeding",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.latency, m.seededSlots)
	return m
}

func (m *BookingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveSeeded(slots int) {
	if m == nil || slots <= 0 {
		return
	}
	m.seededSlots.Add(float64(slots))
}

// AssistantMetrics exposes counters/histograms for assistant turns.
type AssistantMetrics struct {
	turnsTotal    *prometheus.CounterVec
	rejectedTotal prometheus.Counter
	turnLatency   *prometheus.HistogramVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klinik",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Finished assistant turns by outcome and matched intent",
		}, []string{"outcome", "intent"}),
		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "klinik",
			Subsystem: "assistant",
			Name:      "rejected_total",
			Help:      "Messages dropped because a turn was already in flight",
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "klinik",
			Subsystem: "assistant",
			Name:      "turn_seconds",
			Help:      "Time from dispatch to terminal outcome",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.rejectedTotal, m.turnLatency)
	return m
}

func (m *AssistantMetrics) ObserveTurn(outcome, intent string, seconds float64) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	m.turnsTotal.WithLabelValues(outcome, intent).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *AssistantMetrics) ObserveRejected() {
	if m == nil {
		return
	}
	m.rejectedTotal.Inc()
}
