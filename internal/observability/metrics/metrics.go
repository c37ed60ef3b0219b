package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters and histograms for the booking flow. All methods
// are safe on a nil receiver so components can run without instrumentation.
type Metrics struct {
	bookingsTotal    *prometheus.CounterVec
	provisionLatency *prometheus.HistogramVec
	emailsTotal      *prometheus.CounterVec
	outboxTotal      *prometheus.CounterVec
	paymentsTotal    *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Appointment booking attempts by outcome",
		}, []string{"outcome"}),
		provisionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careconnect",
			Subsystem: "meetings",
			Name:      "provision_seconds",
			Help:      "Latency of video meeting provisioning",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"result"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Email sends by recipient kind and status",
		}, []string{"recipient", "status"}),
		outboxTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox delivery attempts by result",
		}, []string{"result"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "payments",
			Name:      "operations_total",
			Help:      "Wallet, coin and crypto operations by kind and result",
		}, []string{"kind", "result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs by job and result",
		}, []string{"job", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.provisionLatency, m.emailsTotal, m.outboxTotal, m.paymentsTotal, m.jobRuns)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProvisioning(result string, seconds float64) {
	if m == nil {
		return
	}
	m.provisionLatency.WithLabelValues(result).Observe(seconds)
}

func (m *Metrics) ObserveEmail(recipient, status string) {
	if m == nil {
		return
	}
	m.emailsTotal.WithLabelValues(recipient, status).Inc()
}

func (m *Metrics) ObserveOutbox(result string) {
	if m == nil {
		return
	}
	m.outboxTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePayment(kind, result string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveJob counts one scheduled job run.
func (m *Metrics) ObserveJob(job, result string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}
