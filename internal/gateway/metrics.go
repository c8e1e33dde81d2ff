// ABOUTME: Prometheus counters for gateway traffic
// ABOUTME: Exposed on the configurable metrics path when enabled

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_messages_sent_total",
		Help: "Outbound messages successfully posted to Slack.",
	})

	sendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_send_failures_total",
		Help: "Outbound posts that failed at the Slack API.",
	})

	inboundRouted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_inbound_routed_total",
		Help: "Inbound events attributed to an author's thread.",
	})

	inboundIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_inbound_ignored_total",
		Help: "Inbound events discarded by the classifier or unknown to the router.",
	})
)
