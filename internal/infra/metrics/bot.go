package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(updatesTotal, sendFallbacks, notificationsTotal) }

var updatesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bot_updates_total",
		Help: "Telegram updates handled, by outcome.",
	},
	[]string{"outcome"}, // 'ok', 'error', 'rate_limited'
)

var sendFallbacks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bot_media_send_fallbacks_total",
		Help: "Media sends degraded to plain text after a platform error.",
	},
)

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bot_notifications_total",
		Help: "Subscriber notifications fanned out, by outcome.",
	},
	[]string{"outcome"},
)

func IncUpdate(outcome string)       { updatesTotal.WithLabelValues(outcome).Inc() }
func IncSendFallback()               { sendFallbacks.Inc() }
func IncNotification(outcome string) { notificationsTotal.WithLabelValues(outcome).Inc() }
