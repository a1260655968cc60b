package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dailyrent/service-booking/internal/domain/payment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentGateway is the anti-corruption layer over the external payment provider.
type PaymentGateway interface {
	// CreatePayment registers a redirect-confirmed, auto-captured payment.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error)

	// GetPaymentStatus fetches the current status of a payment.
	GetPaymentStatus(ctx context.Context, externalID string) (*PaymentStatus, error)

	// CancelPayment cancels a payment that has not been captured yet.
	CancelPayment(ctx context.Context, externalID, idempotencyKey string) error
}

// CreatePaymentRequest describes a payment to create at the gateway.
type CreatePaymentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Description    string
	ReturnURL      string
	IdempotencyKey string
	Metadata       map[string]string
}

// CreatedPayment is what the gateway returns for a new payment.
type CreatedPayment struct {
	ExternalID      string
	Status          payment.Status
	Paid            bool
	ConfirmationURL string
}

// PaymentStatus is the gateway's view of an existing payment.
type PaymentStatus struct {
	Status payment.Status
	Paid   bool
}

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway returned %d: %s %s", e.StatusCode, e.Code, e.Description)
}

// --- wire format ---

type amountJSON struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationJSON struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type createPaymentBody struct {
	Amount       amountJSON        `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation confirmationJSON  `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type paymentJSON struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       amountJSON        `json:"amount"`
	Confirmation *confirmationJSON `json:"confirmation,omitempty"`
}

type errorJSON struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// HTTPPaymentGateway talks to a YooKassa-compatible REST API with basic auth.
type HTTPPaymentGateway struct {
	baseURL   string
	shopID    string
	secretKey string
	client    *http.Client
	logger    *zap.Logger
}

// NewHTTPPaymentGateway creates a gateway client. baseURL has no trailing slash.
func NewHTTPPaymentGateway(baseURL, shopID, secretKey string, logger *zap.Logger) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		baseURL:   baseURL,
		shopID:    shopID,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// CreatePayment posts a new payment. The idempotency key makes retries safe.
func (g *HTTPPaymentGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedPayment, error) {
	body := createPaymentBody{
		Amount:       amountJSON{Value: req.Amount.StringFixed(2), Currency: req.Currency},
		Capture:      true,
		Confirmation: confirmationJSON{Type: "redirect", ReturnURL: req.ReturnURL},
		Description:  req.Description,
		Metadata:     req.Metadata,
	}

	var out paymentJSON
	if err := g.do(ctx, http.MethodPost, "/payments", req.IdempotencyKey, body, &out); err != nil {
		return nil, err
	}

	status, err := payment.ParseStatus(out.Status)
	if err != nil {
		return nil, err
	}

	created := &CreatedPayment{ExternalID: out.ID, Status: status, Paid: out.Paid}
	if out.Confirmation != nil {
		created.ConfirmationURL = out.Confirmation.ConfirmationURL
	}

	g.logger.Info("gateway payment created",
		zap.String("external_id", created.ExternalID),
		zap.String("status", string(created.Status)),
	)
	return created, nil
}

// GetPaymentStatus fetches a payment by its gateway id.
func (g *HTTPPaymentGateway) GetPaymentStatus(ctx context.Context, externalID string) (*PaymentStatus, error) {
	var out paymentJSON
	if err := g.do(ctx, http.MethodGet, "/payments/"+externalID, "", nil, &out); err != nil {
		return nil, err
	}
	status, err := payment.ParseStatus(out.Status)
	if err != nil {
		return nil, err
	}
	return &PaymentStatus{Status: status, Paid: out.Paid}, nil
}

// CancelPayment cancels a payment awaiting capture.
func (g *HTTPPaymentGateway) CancelPayment(ctx context.Context, externalID, idempotencyKey string) error {
	return g.do(ctx, http.MethodPost, "/payments/"+externalID+"/cancel", idempotencyKey, struct{}{}, nil)
}

func (g *HTTPPaymentGateway) do(ctx context.Context, method, path, idempotencyKey string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.SetBasicAuth(g.shopID, g.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotence-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorJSON
		_ = json.Unmarshal(raw, &apiErr)
		return &GatewayError{StatusCode: resp.StatusCode, Code: apiErr.Code, Description: apiErr.Description}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
