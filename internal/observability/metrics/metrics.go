package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the conversational intake flow.
type IntakeMetrics struct {
	conversationsTotal *prometheus.CounterVec
	messagesTotal      *prometheus.CounterVec
	extractionsTotal   *prometheus.CounterVec
	ticketsTotal       prometheus.Counter
	agentLatency       prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		conversationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "intake",
			Name:      "conversations_total",
			Help:      "Total intake conversations started",
		}, []string{"language"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "intake",
			Name:      "messages_total",
			Help:      "Total user messages processed by flow state",
		}, []string{"state"}),
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "intake",
			Name:      "extractions_total",
			Help:      "Total structured extraction attempts",
		}, []string{"outcome"}),
		ticketsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "intake",
			Name:      "tickets_created_total",
			Help:      "Total appointment tickets created",
		}),
		agentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "intake",
			Name:      "agent_latency_seconds",
			Help:      "Latency of conversation agent calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.conversationsTotal, m.messagesTotal, m.extractionsTotal, m.ticketsTotal, m.agentLatency)
	return m
}

func (m *IntakeMetrics) ObserveConversationStarted(language string) {
	if m == nil {
		return
	}
	m.conversationsTotal.WithLabelValues(language).Inc()
}

func (m *IntakeMetrics) ObserveMessage(state string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(state).Inc()
}

func (m *IntakeMetrics) ObserveExtraction(outcome string) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) ObserveTicketCreated() {
	if m == nil {
		return
	}
	m.ticketsTotal.Inc()
}

func (m *IntakeMetrics) ObserveAgentLatency(seconds float64) {
	if m == nil {
		return
	}
	m.agentLatency.Observe(seconds)
}
