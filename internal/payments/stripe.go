// Package payments – Stripe provider
//
// StripeProvider adapts the Provider boundary to Stripe PaymentIntents.
// Card validation, 3-D Secure, and fraud checks are entirely Stripe's
// responsibility; this adapter only translates requests, statuses, and error
// shapes.
package payments

import (
	"context"
	"net/http"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeProvider implements Provider over the Stripe API.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider builds a provider from the configured secret key.
// Returns ErrProviderNotConfigured when the key is missing so the caller can
// surface a configuration error rather than a provider failure.
func NewStripeProvider(secretKey string, timeout time.Duration) (*StripeProvider, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrProviderNotConfigured
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	api := &client.API{}
	api.Init(secretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))
	return &StripeProvider{api: api}, nil
}

// CreateTransaction opens a PaymentIntent in pending status, tagged with the
// purchase metadata.
func (p *StripeProvider) CreateTransaction(ctx context.Context, req CreateRequest) (*Transaction, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.CurrencyCode)),
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return fromIntent(pi), nil
}

// ConfirmTransaction submits the payment method for the intent. Declines come
// back as *DeclinedError with Stripe's message verbatim.
func (p *StripeProvider) ConfirmTransaction(ctx context.Context, id, paymentMethod string) (*Transaction, error) {
	params := &stripe.PaymentIntentConfirmParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(paymentMethod),
	}
	pi, err := p.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return fromIntent(pi), nil
}

// GetTransaction re-fetches the intent; status is never cached beyond the
// scope of one request.
func (p *StripeProvider) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	pi, err := p.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, mapStripeError(err)
	}
	return fromIntent(pi), nil
}

// fromIntent projects a Stripe PaymentIntent onto the provider-neutral
// Transaction shape.
func fromIntent(pi *stripe.PaymentIntent) *Transaction {
	return &Transaction{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapIntentStatus(pi),
		AmountCents:  pi.Amount,
		CurrencyCode: string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

// mapIntentStatus folds Stripe's intent states into the four statuses this
// system reasons about. An intent bounced back to requires_payment_method
// after a payment error counts as failed.
func mapIntentStatus(pi *stripe.PaymentIntent) Status {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusCanceled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return StatusFailed
		}
		return StatusPending
	default:
		return StatusPending
	}
}

// mapStripeError translates Stripe error shapes: card errors become
// DeclinedError (recoverable by the buyer), everything else propagates as a
// provider failure.
func mapStripeError(err error) error {
	var sErr *stripe.Error
	if stripeErr, ok := err.(*stripe.Error); ok {
		sErr = stripeErr
	}
	if sErr != nil && sErr.Type == stripe.ErrorTypeCard {
		msg := sErr.Msg
		if msg == "" {
			msg = "your card was declined"
		}
		return &DeclinedError{Message: msg}
	}
	return err
}
