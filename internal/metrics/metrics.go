package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lootkingdom"

// Confirmation outcomes.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeCancelled  = "cancelled"
	OutcomePending    = "pending"
	OutcomeNoop       = "noop"
	OutcomeOutOfStock = "out_of_stock"
)

type Metrics struct {
	OrdersCreated        prometheus.Counter
	PaymentConfirmations *prometheus.CounterVec
	LootCoinsCredited    prometheus.Counter
	CouponsRedeemed      *prometheus.CounterVec
	CouponsConsumed      prometheus.Counter
	GatewayFailures      prometheus.Counter
	OutboxPublished      *prometheus.CounterVec
	OutboxFailed         *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the service collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created from a cart.",
		}),
		PaymentConfirmations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmations by outcome.",
		}, []string{"outcome"}),
		LootCoinsCredited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loot_coins_credited_total",
			Help:      "LootCoins credited on confirmed orders.",
		}),
		CouponsRedeemed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupons_redeemed_total",
			Help:      "Coupons bought with LootCoins by reward tier.",
		}, []string{"reward_id"}),
		CouponsConsumed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupons_consumed_total",
			Help:      "Coupons marked as used.",
		}),
		GatewayFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_gateway_failures_total",
			Help:      "Checkout preference requests that failed or were refused by the breaker.",
		}),
		OutboxPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_published_total",
			Help:      "Outbox events written to Kafka.",
		}, []string{"event_type"}),
		OutboxFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Outbox events that failed to publish.",
		}, []string{"event_type"}),
		gatherer: gatherer,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
