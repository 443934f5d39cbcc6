package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric this service exports.
const Namespace = "booking"

// BookingMetrics exposes counters/histograms for bookings, reminders and
// inbound messaging.
type BookingMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	remindersTotal *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	commandsTotal  *prometheus.CounterVec
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bookings",
			Name:      "create_total",
			Help:      "Booking creation attempts by result",
		}, []string{"result"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "reminders",
			Name:      "dispatch_total",
			Help:      "Reminder dispatches by window and outcome",
		}, []string{"window", "outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "reminders",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reminder sweeps",
			Buckets:   prometheus.DefBuckets,
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "commands",
			Name:      "handled_total",
			Help:      "Inbound commands by outcome",
		}, []string{"outcome"}),
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound Green API webhooks",
		}, []string{"event_type", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound messages",
		}, []string{"kind", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.remindersTotal, m.sweepDuration, m.commandsTotal,
		m.inboundTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *BookingMetrics) ObserveBookingCreate(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveReminder(window, outcome string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(window, outcome).Inc()
}

func (m *BookingMetrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(seconds)
}

func (m *BookingMetrics) ObserveCommand(outcome string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *BookingMetrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *BookingMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
