package stripe

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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/tuitron-api/pkg/breaker"
)

var (
	// ErrProvider marks failures on the provider side, including an open breaker.
	ErrProvider = errors.New("stripe: request failed")
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("stripe: resource not found")
	// ErrInvalidRequest is returned when Stripe rejects the request parameters.
	ErrInvalidRequest = errors.New("stripe: invalid request")
)

// RequestError is a 4xx reply. It never counts against the circuit breaker.
type RequestError struct {
	Status  int
	Type    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("stripe: status %d", e.Status)
	}
	return fmt.Sprintf("stripe: status %d: %s", e.Status, e.Message)
}

// Unwrap classifies the reply; 429 is reported as a provider failure.
func (e *RequestError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrProvider
	default:
		return ErrInvalidRequest
	}
}

// Config configures the Checkout client.
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// LineItem describes the single priced item of a checkout session.
type LineItem struct {
	Name        string
	Currency    string
	UnitAmount  int64
	Quantity    int64
	Description string
}

// SessionParams are the inputs of a hosted checkout session.
type SessionParams struct {
	LineItem      LineItem
	CustomerEmail string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// Session is the subset of a Checkout Session the service consumes.
type Session struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PaymentIntent   string            `json:"-"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// UnmarshalJSON accepts payment_intent both as an id string and as an expanded object.
func (s *Session) UnmarshalJSON(data []byte) error {
	type alias Session
	aux := struct {
		*alias
		PaymentIntent json.RawMessage `json:"payment_intent"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.PaymentIntent) == 0 || string(aux.PaymentIntent) == "null" {
		return nil
	}
	var id string
	if err := json.Unmarshal(aux.PaymentIntent, &id); err == nil {
		s.PaymentIntent = id
		return nil
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(aux.PaymentIntent, &expanded); err != nil {
		return err
	}
	s.PaymentIntent = expanded.ID
	return nil
}

// Email returns the payer email, preferring the prefilled address.
func (s *Session) Email() string {
	if s.CustomerEmail != "" {
		return s.CustomerEmail
	}
	if s.CustomerDetails != nil {
		return s.CustomerDetails.Email
	}
	return ""
}

type reply struct {
	status int
	body   []byte
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Stripe Checkout REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewClient constructs a Checkout client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cb:     breaker.New("stripe", 30*time.Second, logger),
		logger: logger,
	}
}

// CreateSession opens a hosted payment-mode checkout session.
func (c *Client) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	quantity := params.LineItem.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	form.Set("line_items[0][quantity]", strconv.FormatInt(quantity, 10))
	form.Set("line_items[0][price_data][currency]", params.LineItem.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.LineItem.UnitAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.LineItem.Name)
	if params.LineItem.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", params.LineItem.Description)
	}
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RetrieveSession fetches a checkout session by id.
func (c *Client) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, &RequestError{Status: http.StatusBadRequest, Type: "invalid_request_error", Message: "empty session id"}
	}
	var session Session
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, dest interface{}) error {
	out, err := c.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.cfg.SecretKey, "")
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return &reply{status: resp.StatusCode, body: raw}, nil
	})
	if err != nil {
		if breaker.IsOpen(err) {
			c.logger.Warn("stripe circuit open, request rejected", zap.String("method", method), zap.String("path", path))
		} else {
			c.logger.Warn("stripe request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		}
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}

	r := out.(*reply)
	if r.status >= http.StatusBadRequest {
		reqErr := &RequestError{Status: r.status}
		var apiErr apiError
		if json.Unmarshal(r.body, &apiErr) == nil {
			reqErr.Type = apiErr.Error.Type
			reqErr.Message = apiErr.Error.Message
		}
		c.logger.Info("stripe rejected request", zap.String("method", method), zap.String("path", path), zap.Int("status", r.status))
		return reqErr
	}
	if err := json.Unmarshal(r.body, dest); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	return nil
}
