package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

type StripeService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewStripeService(apiKey, baseURL string) *StripeService {
	return &StripeService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type stripeCheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

func (s stripeCheckoutSession) checkout() *Checkout {
	return &Checkout{
		TransactionID: s.ID,
		URL:           s.URL,
		Paid:          s.PaymentStatus == "paid",
		AmountMinor:   s.AmountTotal,
		Currency:      s.Currency,
		Metadata:      s.Metadata,
	}
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *StripeService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	const op = "create checkout"
	if err := req.validate(); err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	if id, ok := req.Metadata["session_id"]; ok {
		form.Set("client_reference_id", id)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	session, err := s.do(httpReq, op)
	if err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, &GatewayError{Op: op, Err: errors.New("response missing checkout id or url")}
	}
	return session.checkout(), nil
}

func (s *StripeService) GetCheckout(ctx context.Context, transactionID string) (*Checkout, error) {
	const op = "get checkout"
	if transactionID == "" {
		return nil, &GatewayError{Op: op, Err: errors.New("empty checkout id")}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/checkout/sessions/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	session, err := s.do(httpReq, op)
	if err != nil {
		return nil, err
	}
	return session.checkout(), nil
}

// ExpireCheckout closes an open checkout so it can no longer be paid.
// Stripe rejects expiring a checkout that is already complete or expired.
func (s *StripeService) ExpireCheckout(ctx context.Context, transactionID string) error {
	const op = "expire checkout"
	if transactionID == "" {
		return &GatewayError{Op: op, Err: errors.New("empty checkout id")}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/checkout/sessions/"+url.PathEscape(transactionID)+"/expire", nil)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	httpReq.Header.Set("Idempotency-Key", "expire-"+transactionID)

	_, err = s.do(httpReq, op)
	return err
}

func (s *StripeService) do(req *http.Request, op string) (*stripeCheckoutSession, error) {
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr stripeErrorBody
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &session, nil
}
