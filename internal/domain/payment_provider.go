package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentGateway is the entire contract the booking core requires from the
// external payment provider. Order lifecycle, retries and currency handling
// live behind the implementation.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (string, error)
}
