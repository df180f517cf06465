package domain

import "strings"

// PaymentStatus is the normalised outcome reported by the payment channel.
type PaymentStatus string

const (
	PaymentApproved PaymentStatus = "approved"
	PaymentPending  PaymentStatus = "pending"
	PaymentDeclined PaymentStatus = "declined"
)

func NormalizePaymentStatus(token string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "approved":
		return PaymentApproved
	case "pending", "in_process", "authorized":
		return PaymentPending
	default:
		return PaymentDeclined
	}
}
