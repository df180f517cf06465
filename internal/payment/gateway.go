// Package payment talks to the hosted-checkout provider. The provider
// redirects the buyer back to the confirm endpoint with a status token.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/loot_kingdom/pkg/circuitbreaker"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrGatewayUnavailable covers transport failures, non-2xx answers, bad
// bodies and an open breaker.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

const maxErrorBodySize = 4 << 10

type LineItem struct {
	ProductID int64
	Title     string
	Quantity  int32
	UnitPrice int64
}

type CheckoutRequest struct {
	OrderID    uuid.UUID
	Items      []LineItem
	Total      int64
	PayerEmail string
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
}

type Config struct {
	BaseURL       string
	AccessToken   string
	PublicBaseURL string
	Timeout       time.Duration
	Breaker       circuitbreaker.Config
}

type HostedCheckout struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker[string]
	log        *slog.Logger
}

func NewHostedCheckout(cfg Config, log *slog.Logger) *HostedCheckout {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &HostedCheckout{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[string]("payment-gateway", cfg.Breaker, log),
		log:     log,
	}
}

type preferenceItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Quantity  int32  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type preferenceRequest struct {
	ExternalReference string           `json:"external_reference"`
	Items             []preferenceItem `json:"items"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
	BackURLs struct {
		Success string `json:"success"`
		Pending string `json:"pending"`
		Failure string `json:"failure"`
	} `json:"back_urls"`
	AutoReturn string `json:"auto_return"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreateCheckout returns the URL the buyer is sent to. Without an access
// token the gateway is considered unconfigured and "" is returned with no error.
func (g *HostedCheckout) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if g.cfg.AccessToken == "" {
		return "", nil
	}

	url, err := g.breaker.Execute(func() (string, error) {
		return g.createPreference(ctx, req)
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return "", err
	}
	return url, nil
}

func (g *HostedCheckout) createPreference(ctx context.Context, req CheckoutRequest) (string, error) {
	body := preferenceRequest{
		ExternalReference: req.OrderID.String(),
		Items:             make([]preferenceItem, 0, len(req.Items)),
		AutoReturn:        "approved",
	}
	for _, item := range req.Items {
		body.Items = append(body.Items, preferenceItem{
			ID:        fmt.Sprintf("%d", item.ProductID),
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	body.Payer.Email = req.PayerEmail
	body.BackURLs.Success = g.backURL(req.OrderID, "approved")
	body.BackURLs.Pending = g.backURL(req.OrderID, "pending")
	body.BackURLs.Failure = g.backURL(req.OrderID, "rejected")

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal preference: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/checkout/preferences", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrGatewayUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: execute request: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result preferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGatewayUnavailable, err)
	}
	if result.InitPoint == "" {
		return "", fmt.Errorf("%w: response has no init_point", ErrGatewayUnavailable)
	}

	g.log.DebugContext(ctx, "payment preference created", "order_id", req.OrderID, "preference_id", result.ID)
	return result.InitPoint, nil
}

func (g *HostedCheckout) backURL(orderID uuid.UUID, status string) string {
	return fmt.Sprintf("%s/api/v1/orders/%s/confirm?status=%s", g.cfg.PublicBaseURL, orderID, status)
}
