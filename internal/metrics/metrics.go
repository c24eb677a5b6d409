package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the schedule and booking flows.
type BookingMetrics struct {
	schedulesCreated  prometheus.Counter
	schedulesDeleted  prometheus.Counter
	transitionsTotal  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		schedulesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "schedule",
			Name:      "created_total",
			Help:      "Total schedules created",
		}),
		schedulesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "schedule",
			Name:      "deleted_total",
			Help:      "Total schedules deleted",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Slot state transitions by type and outcome",
		}, []string{"transition", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careslot",
			Subsystem: "booking",
			Name:      "operation_duration_seconds",
			Help:      "Latency of schedule manager operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.schedulesCreated, m.schedulesDeleted, m.transitionsTotal, m.operationDuration)
	return m
}

func (m *BookingMetrics) ScheduleCreated() {
	if m == nil {
		return
	}
	m.schedulesCreated.Inc()
}

func (m *BookingMetrics) ScheduleDeleted() {
	if m == nil {
		return
	}
	m.schedulesDeleted.Inc()
}

func (m *BookingMetrics) ObserveTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(transition, outcome).Inc()
}

func (m *BookingMetrics) ObserveOperation(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}
