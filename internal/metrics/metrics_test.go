package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.OrdersCreated.Inc()
	m.PaymentConfirmations.WithLabelValues(OutcomeConfirmed).Inc()
	m.PaymentConfirmations.WithLabelValues(OutcomeConfirmed).Inc()
	m.LootCoinsCredited.Add(14)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentConfirmations.WithLabelValues(OutcomeConfirmed)))
	assert.Equal(t, 14.0, testutil.ToFloat64(m.LootCoinsCredited))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.CouponsRedeemed.WithLabelValues("discount-10").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lootkingdom_coupons_redeemed_total{reward_id="discount-10"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
