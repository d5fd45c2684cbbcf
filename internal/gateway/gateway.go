// Package gateway invokes privileged backend functions over the Firebase
// callable-function HTTPS protocol: POST {"data": payload} to
// <baseURL>/<function> and read {"result": ...} or {"error": {...}}.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/metrics"
)

// Remote function names called by the engine.
const (
	FnCreateSociety               = "createSociety"
	FnCreateSocietyAdmin          = "createSocietyAdmin"
	FnHardDeleteSociety           = "hardDeleteSociety"
	FnRegenerateSocietyQR         = "regenerateSocietyQR"
	FnBroadcastAnnouncement       = "broadcastAnnouncement"
	FnDeleteBroadcastAnnouncement = "deleteBroadcastAnnouncement"
	FnApplyUnitCreation           = "applyUnitCreation"
	FnApplyUnitDeletion           = "applyUnitDeletion"
	FnApplyUnitEdit               = "applyUnitEdit"
)

type tokenKey struct{}

// WithToken attaches the caller's ID token; it is forwarded as the bearer
// credential so the backend sees the operator's identity.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// ServiceToken is used when the context carries no operator token, e.g.
	// from background workers.
	ServiceToken string
	// RatePerSecond throttles outgoing calls; zero disables throttling.
	RatePerSecond float64
	Burst         int
}

type Client struct {
	baseURL      string
	timeout      time.Duration
	serviceToken string
	http         *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		timeout:      timeout,
		serviceToken: cfg.ServiceToken,
		http:         &http.Client{Timeout: timeout},
		limiter:      limiter,
		logger:       logger,
	}
}

type callError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *callError      `json:"error"`
}

// Call invokes function with payload and decodes its result into out, which
// may be nil. Calls are at-least-once from the backend's point of view;
// payloads should carry an idempotency key where a retry could double-apply.
func (c *Client) Call(ctx context.Context, function string, payload, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveGatewayCall(function, err, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperr.External("gateway "+function, err)
		}
	}

	body, err := json.Marshal(map[string]any{"data": payload})
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", function, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+function, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", function, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gateway call failed", zap.String("function", function), zap.Error(err))
		return apperr.External("gateway "+function, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.External("gateway "+function, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode == http.StatusOK {
			return apperr.External("gateway "+function, fmt.Errorf("decode response: %w", err))
		}
	}

	if env.Error != nil || resp.StatusCode != http.StatusOK {
		callErr := env.Error
		if callErr == nil {
			callErr = &callError{Status: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
		}
		c.logger.Warn("gateway call rejected",
			zap.String("function", function),
			zap.Int("http_status", resp.StatusCode),
			zap.String("status", callErr.Status),
			zap.String("message", callErr.Message),
		)
		return mapCallError(function, callErr)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return apperr.External("gateway "+function, fmt.Errorf("decode result: %w", err))
		}
	}

	c.logger.Debug("gateway call ok", zap.String("function", function), zap.Duration("took", time.Since(start)))
	return nil
}

func (c *Client) bearer(ctx context.Context) string {
	if t := tokenFrom(ctx); t != "" {
		return t
	}
	return c.serviceToken
}

// mapCallError translates callable-function status codes into error kinds.
func mapCallError(function string, e *callError) error {
	msg := fmt.Sprintf("%s: %s", function, e.Message)
	switch e.Status {
	case "INVALID_ARGUMENT", "OUT_OF_RANGE":
		return apperr.Validation("%s", msg)
	case "NOT_FOUND":
		return apperr.NotFound("%s", msg)
	case "FAILED_PRECONDITION", "ALREADY_EXISTS", "ABORTED":
		return apperr.InvalidState("%s", msg)
	case "DEADLINE_EXCEEDED":
		return fmt.Errorf("%s: %w", msg, apperr.ErrTimeout)
	}
	return fmt.Errorf("%s (%s): %w", msg, e.Status, apperr.ErrExternalCall)
}

// Disabled stands in for the client when no base URL is configured. Every
// call fails as an external call error.
type Disabled struct{}

func (Disabled) Call(_ context.Context, function string, _, _ any) error {
	return apperr.External("gateway "+function, errors.New("gateway.base_url is not configured"))
}
