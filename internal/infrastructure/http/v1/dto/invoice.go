package dto

import (
	"bottleworks/internal/core/types"
)

// RecordPaymentRequest records a payment against an invoice.
type RecordPaymentRequest struct {
	Amount types.Money `json:"amount" binding:"required"`
}
