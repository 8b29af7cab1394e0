package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements the Collector interface using
// Prometheus metrics, shared across the pop3d and smtpd binaries (a
// "proto" label of "pop3" or "smtp" distinguishes them).
type PrometheusCollector struct {
	connectionsTotal  *prometheus.CounterVec
	connectionsActive *prometheus.GaugeVec

	authAttemptsTotal *prometheus.CounterVec
	commandsTotal     *prometheus.CounterVec

	messagesRetrievedTotal prometheus.Counter
	messagesDeletedTotal   prometheus.Counter
	messagesListedTotal    prometheus.Counter
	messagesSizeBytes      prometheus.Histogram

	messagesDeliveredTotal prometheus.Counter
	recipientsPerDelivery  prometheus.Histogram
	deliveredSizeBytes     prometheus.Histogram
	deliveryFailuresTotal  prometheus.Counter
}

// NewPrometheusCollector creates a new PrometheusCollector with all
// metrics registered against reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailsrv_connections_total",
			Help: "Total number of connections opened, by protocol.",
		}, []string{"proto"}),
		connectionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mailsrv_connections_active",
			Help: "Number of currently active connections, by protocol.",
		}, []string{"proto"}),

		authAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailsrv_auth_attempts_total",
			Help: "Total number of authentication attempts (POP3 PASS).",
		}, []string{"proto", "result"}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailsrv_commands_total",
			Help: "Total number of protocol commands processed.",
		}, []string{"proto", "command"}),

		messagesRetrievedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsrv_pop3_messages_retrieved_total",
			Help: "Total number of messages retrieved via RETR.",
		}),
		messagesDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsrv_pop3_messages_deleted_total",
			Help: "Total number of messages marked for deletion via DELE.",
		}),
		messagesListedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsrv_pop3_messages_listed_total",
			Help: "Total number of LIST operations.",
		}),
		messagesSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailsrv_pop3_message_size_bytes",
			Help:    "Size of retrieved messages in bytes.",
			Buckets: []float64{1024, 10240, 102400, 1048576, 10485760, 26214400, 52428800},
		}),

		messagesDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsrv_smtp_messages_delivered_total",
			Help: "Total number of SMTP messages successfully delivered.",
		}),
		recipientsPerDelivery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailsrv_smtp_recipients_per_delivery",
			Help:    "Number of recipients per delivered message.",
			Buckets: []float64{1, 2, 5, 10, 20, 30},
		}),
		deliveredSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailsrv_smtp_message_size_bytes",
			Help:    "Size of delivered message bodies in bytes.",
			Buckets: []float64{1024, 10240, 102400, 1048576, 10485760, 26214400, 52428800},
		}),
		deliveryFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailsrv_smtp_delivery_failures_total",
			Help: "Total number of SMTP deliveries that failed in the store (451).",
		}),
	}

	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.authAttemptsTotal,
		c.commandsTotal,
		c.messagesRetrievedTotal,
		c.messagesDeletedTotal,
		c.messagesListedTotal,
		c.messagesSizeBytes,
		c.messagesDeliveredTotal,
		c.recipientsPerDelivery,
		c.deliveredSizeBytes,
		c.deliveryFailuresTotal,
	)

	return c
}

func (c *PrometheusCollector) ConnectionOpened(proto string) {
	c.connectionsTotal.WithLabelValues(proto).Inc()
	c.connectionsActive.WithLabelValues(proto).Inc()
}

func (c *PrometheusCollector) ConnectionClosed(proto string) {
	c.connectionsActive.WithLabelValues(proto).Dec()
}

func (c *PrometheusCollector) CommandProcessed(proto, command string) {
	c.commandsTotal.WithLabelValues(proto, command).Inc()
}

func (c *PrometheusCollector) AuthAttempt(proto string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.authAttemptsTotal.WithLabelValues(proto, result).Inc()
}

func (c *PrometheusCollector) MessageRetrieved(sizeBytes int64) {
	c.messagesRetrievedTotal.Inc()
	c.messagesSizeBytes.Observe(float64(sizeBytes))
}

func (c *PrometheusCollector) MessageDeleted() {
	c.messagesDeletedTotal.Inc()
}

func (c *PrometheusCollector) MessageListed() {
	c.messagesListedTotal.Inc()
}

func (c *PrometheusCollector) MessageDelivered(recipients int, sizeBytes int64) {
	c.messagesDeliveredTotal.Inc()
	c.recipientsPerDelivery.Observe(float64(recipients))
	c.deliveredSizeBytes.Observe(float64(sizeBytes))
}

func (c *PrometheusCollector) DeliveryFailed() {
	c.deliveryFailuresTotal.Inc()
}
