// Package gateway is the single chokepoint for backend communication.
//
// Call never returns a Go error: transport failures are retried under the
// configured policy and, once exhausted, surface as a synthetic
// {"error":"Connection failed"} body. Decode turns a body into a typed value
// or a typed *Error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"StockSimDesk/internal/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Target selects one of the two independently deployed backends.
type Target string

const (
	TargetTrading Target = "trading"
	TargetFinance Target = "finance"
)

// ConnectionFailed is the error value of the synthetic exhaustion body.
const ConnectionFailed = "Connection failed"

// Options tunes a single call.
type Options struct {
	Silent bool // suppress the exhaustion warning
}

// CallStats describes one finished Call.
type CallStats struct {
	RequestID string
	Action    string
	Target    Target
	Attempts  int
	OK        bool
	Duration  time.Duration
	Err       string
}

// Observer receives stats after each call. It must not block.
type Observer func(CallStats)

// Endpoints holds the URL of each backend.
type Endpoints struct {
	Trading string
	Finance string
}

// Gateway posts actions to the configured backends.
type Gateway struct {
	Endpoints Endpoints
	Secret    string
	Client    *http.Client
	Policy    retry.Policy
	Limiter   *rate.Limiter // nil disables client-side rate limiting
	Sleep     retry.Sleeper
	Observer  Observer
	log       zerolog.Logger
}

// New creates a Gateway with optional proxy support.
func New(endpoints Endpoints, secret, proxyURL string, timeout time.Duration, policy retry.Policy, log zerolog.Logger) *Gateway {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		Endpoints: endpoints,
		Secret:    secret,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Policy: policy,
		Sleep:  retry.Sleep,
		log:    log.With().Str("component", "gateway").Logger(),
	}
}

// WithRateLimit limits attempts to perSecond with the given burst. perSecond <= 0 disables it.
func (g *Gateway) WithRateLimit(perSecond float64, burst int) *Gateway {
	if perSecond <= 0 {
		g.Limiter = nil
		return g
	}
	if burst < 1 {
		burst = 1
	}
	g.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return g
}

func (g *Gateway) endpoint(target Target) string {
	if target == TargetFinance {
		return g.Endpoints.Finance
	}
	return g.Endpoints.Trading
}

// Call sends action with payload to target and returns the raw JSON reply.
// It always returns a JSON value; after exhausted retries that value is
// {"error":"Connection failed","message":"..."}.
func (g *Gateway) Call(ctx context.Context, action string, payload map[string]any, target Target, opts Options) (out json.RawMessage) {
	start := time.Now()
	reqID := uuid.NewString()
	attempts := 0

	defer func() {
		if r := recover(); r != nil {
			out = failureBody(fmt.Sprintf("%v", r))
		}
		g.observe(CallStats{
			RequestID: reqID,
			Action:    action,
			Target:    target,
			Attempts:  attempts,
			OK:        !isConnectionFailure(out),
			Duration:  time.Since(start),
			Err:       failureMessage(out),
		})
	}()

	body, err := encodeBody(g.Secret, action, payload)
	if err != nil {
		// Not a transport problem; retrying cannot help.
		attempts = 1
		g.warn(opts, action, reqID, err)
		return failureBody(err.Error())
	}

	var reply json.RawMessage
	err = retry.Do(ctx, g.Policy, g.Sleep, func(attempt int) error {
		attempts = attempt + 1
		res, err := g.post(ctx, g.endpoint(target), reqID, body)
		if err != nil {
			g.log.Debug().Err(err).
				Str("action", action).
				Str("request_id", reqID).
				Int("attempt", attempts).
				Msg("backend call failed")
			return err
		}
		reply = res
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		msg := err.Error()
		if errors.As(err, &exhausted) && exhausted.Err != nil {
			msg = exhausted.Err.Error()
		}
		g.warn(opts, action, reqID, errors.New(msg))
		return failureBody(msg)
	}
	return reply
}

func (g *Gateway) post(ctx context.Context, endpoint, reqID string, body []byte) (json.RawMessage, error) {
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Request-ID", reqID)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON response (status %d)", resp.StatusCode)
	}
	return json.RawMessage(data), nil
}

func (g *Gateway) warn(opts Options, action, reqID string, err error) {
	if opts.Silent {
		return
	}
	g.log.Warn().Err(err).
		Str("action", action).
		Str("request_id", reqID).
		Msg("backend call failed after retries")
}

func (g *Gateway) observe(s CallStats) {
	if g.Observer != nil {
		g.Observer(s)
	}
}

// encodeBody builds {apiKey, action, ...payload}. apiKey and action cannot be overridden.
func encodeBody(secret, action string, payload map[string]any) ([]byte, error) {
	m := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		m[k] = v
	}
	m["apiKey"] = secret
	m["action"] = action
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

type failure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func failureBody(msg string) json.RawMessage {
	data, _ := json.Marshal(failure{Error: ConnectionFailed, Message: msg})
	return data
}

func isConnectionFailure(raw json.RawMessage) bool {
	var f failure
	if json.Unmarshal(raw, &f) != nil {
		return false
	}
	return f.Error == ConnectionFailed
}

func failureMessage(raw json.RawMessage) string {
	var f failure
	if json.Unmarshal(raw, &f) != nil || f.Error != ConnectionFailed {
		return ""
	}
	return f.Message
}
