package payment

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/showgrid/showgrid/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeGateway creates payment orders as Stripe PaymentIntents. The intent
// ID is the external order reference stored on the booking; everything else
// about the order lifecycle stays on Stripe's side.
type StripeGateway struct {
	currency stripe.Currency
}

func NewStripeGateway() *StripeGateway {
	return &StripeGateway{
		currency: stripe.CurrencyUSD,
	}
}

func (s *StripeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (string, error) {
	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(string(s.currency)),
		Metadata: map[string]string{
			"receipt": receipt,
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", &domain.GatewayError{Err: err}
	}

	return intent.ID, nil
}
