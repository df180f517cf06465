package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusConfirmed}: true,
		{OrderStatusPending, OrderStatusCancelled}: true,
		{OrderStatusConfirmed, OrderStatusShipped}: true,
		{OrderStatusShipped, OrderStatusDelivered}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusConfirmed.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = ParseOrderStatus("LOST")
	assert.Error(t, err)
}

func TestNormalizePaymentStatus(t *testing.T) {
	cases := map[string]PaymentStatus{
		"approved":   PaymentApproved,
		" APPROVED ": PaymentApproved,
		"pending":    PaymentPending,
		"in_process": PaymentPending,
		"authorized": PaymentPending,
		"rejected":   PaymentDeclined,
		"cancelled":  PaymentDeclined,
		"":           PaymentDeclined,
	}
	for token, want := range cases {
		assert.Equal(t, want, NormalizePaymentStatus(token), token)
	}
}
