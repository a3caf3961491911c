package payments

import (
	"context"
	"errors"
	"fmt"
)

// CheckoutRequest describes a hosted checkout for a single charge.
// AmountMinor is in the currency's minor units.
type CheckoutRequest struct {
	AmountMinor    int64
	Currency       string
	Description    string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

func (r CheckoutRequest) validate() error {
	switch {
	case r.AmountMinor <= 0:
		return errors.New("amount must be positive")
	case len(r.Currency) != 3:
		return fmt.Errorf("invalid currency %q", r.Currency)
	case r.SuccessURL == "" || r.CancelURL == "":
		return errors.New("success and cancel urls are required")
	}
	return nil
}

type Checkout struct {
	TransactionID string
	URL           string
	Paid          bool
	AmountMinor   int64
	Currency      string
	Metadata      map[string]string
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	GetCheckout(ctx context.Context, transactionID string) (*Checkout, error)
	ExpireCheckout(ctx context.Context, transactionID string) error
}

// GatewayError wraps any failure talking to the payment processor. The
// caller may retry the whole operation.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Retryable() bool {
	return true
}

// AmountForDuration prices minutes at an hourly rate, both in minor units.
// Fractions of a minor unit are truncated.
func AmountForDuration(hourlyRateMinor int64, minutes int) int64 {
	return hourlyRateMinor * int64(minutes) / 60
}
