package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"printshop/storefront/internal/config"
	"printshop/storefront/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var (
	ErrWriteNotPermitted = errors.New("content client has no write credential")
	ErrCircuitOpen       = errors.New("content api circuit breaker is open")
)

// ContentClient issues GROQ queries and patches against the hosted content API.
type ContentClient interface {
	Query(ctx context.Context, query string, params map[string]any, out any) error
	IncrementField(ctx context.Context, documentID, field string, by int) error
	Context() domain.ExecutionContext
}

type contentClient struct {
	rl         ratelimit.Limiter
	config     config.ContentConfig
	execCtx    domain.ExecutionContext
	baseURL    string
	httpClient *resty.Client

	// Circuit breaker for rate limiting by the API
	circuitBreakerMutex sync.RWMutex
	openUntil           time.Time
	circuitBreakerDelay time.Duration
}

type queryEnvelope struct {
	Query  string          `json:"query"`
	Result json.RawMessage `json:"result"`
	MS     int             `json:"ms"`
}

type mutationRequest struct {
	Mutations []mutation `json:"mutations"`
}

type mutation struct {
	Patch *patch `json:"patch,omitempty"`
}

type patch struct {
	ID  string         `json:"id"`
	Inc map[string]int `json:"inc,omitempty"`
}

// NewContentClient builds the client variant allowed in execCtx.
func NewContentClient(cfg config.ContentConfig, execCtx domain.ExecutionContext) ContentClient {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout()).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	if execCtx == domain.ExecutionServer && cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &contentClient{
		rl:                  ratelimit.New(cfg.MaxRequestsPerSecond),
		config:              cfg,
		execCtx:             execCtx,
		baseURL:             apiBaseURL(cfg, execCtx),
		httpClient:          client,
		circuitBreakerDelay: time.Duration(cfg.CircuitBreakerDelay) * time.Second,
	}
}

// apiBaseURL picks the CDN host for browser reads and the live host for the server.
func apiBaseURL(cfg config.ContentConfig, execCtx domain.ExecutionContext) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if execCtx == domain.ExecutionBrowser {
		return fmt.Sprintf("https://%s.apicdn.sanity.io", cfg.ProjectID)
	}
	return fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
}

func (c *contentClient) Context() domain.ExecutionContext {
	return c.execCtx
}

func (c *contentClient) Query(ctx context.Context, query string, params map[string]any, out any) error {
	queryParams := map[string]string{"query": query}
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode query parameter %s: %w", name, err)
		}
		queryParams["$"+name] = string(encoded)
	}

	url := fmt.Sprintf("%s/v%s/data/query/%s", c.baseURL, c.config.APIVersion, c.config.Dataset)

	body, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(queryParams).Get(url)
	})
	if err != nil {
		return err
	}

	var envelope queryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode query response: %w", err)
	}

	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode query result: %w", err)
	}

	log.Debugf("Query returned in %dms", envelope.MS)
	return nil
}

func (c *contentClient) IncrementField(ctx context.Context, documentID, field string, by int) error {
	if c.execCtx != domain.ExecutionServer {
		return ErrWriteNotPermitted
	}

	payload := mutationRequest{
		Mutations: []mutation{{
			Patch: &patch{ID: documentID, Inc: map[string]int{field: by}},
		}},
	}

	url := fmt.Sprintf("%s/v%s/data/mutate/%s", c.baseURL, c.config.APIVersion, c.config.Dataset)

	_, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(url)
	})
	if err != nil {
		return fmt.Errorf("failed to increment %s on %s: %w", field, documentID, err)
	}

	log.Debugf("Incremented %s on %s by %d", field, documentID, by)
	return nil
}

func (c *contentClient) do(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	if c.isCircuitBreakerOpen() {
		remaining := c.getRemainingCircuitBreakerTime()
		log.Debugf("🚫 Request blocked by circuit breaker. Remaining time: %v", remaining.Round(time.Second))
		return nil, fmt.Errorf("%w for %v more", ErrCircuitOpen, remaining.Round(time.Second))
	}

	c.rl.Take()

	resp, err := send(c.httpClient.R().SetContext(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to reach content api: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		c.triggerCircuitBreaker()
		return nil, fmt.Errorf("%w: rate limited by content api", ErrCircuitOpen)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	return []byte(resp.String()), nil
}

func (c *contentClient) isCircuitBreakerOpen() bool {
	c.circuitBreakerMutex.RLock()
	now := time.Now()
	wasOpen := now.Before(c.openUntil)
	wasTriggered := !c.openUntil.IsZero()
	c.circuitBreakerMutex.RUnlock()

	if !wasOpen && wasTriggered {
		c.circuitBreakerMutex.Lock()
		// Double-check after acquiring write lock
		if !c.openUntil.IsZero() && now.After(c.openUntil) {
			c.openUntil = time.Time{}
			log.Infof("✅ Circuit breaker closed - content api requests allowed again")
		}
		c.circuitBreakerMutex.Unlock()
	}

	return wasOpen
}

func (c *contentClient) triggerCircuitBreaker() {
	c.circuitBreakerMutex.Lock()
	defer c.circuitBreakerMutex.Unlock()

	c.openUntil = time.Now().Add(c.circuitBreakerDelay)
	log.Warnf("🚫 Circuit breaker activated! Content api requests disabled until %v",
		c.openUntil.Format("15:04:05"))
}

func (c *contentClient) getRemainingCircuitBreakerTime() time.Duration {
	c.circuitBreakerMutex.RLock()
	defer c.circuitBreakerMutex.RUnlock()

	remaining := time.Until(c.openUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}
