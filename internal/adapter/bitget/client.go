package bitget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRestURL = "https://api.bitget.com"

	// One timeout budget for every REST call. The contract leaves the
	// threshold to the adapter; retries stay with the caller.
	requestTimeout = 10 * time.Second
)

// bizError is a Bitget business rejection: HTTP succeeded but the
// envelope carries a non-success code.
type bizError struct {
	code string
	msg  string
}

func (e *bizError) Error() string {
	return fmt.Sprintf("bitget code %s: %s", e.code, e.msg)
}

// Client is the Bitget V2 spot REST transport. It signs private calls,
// paces requests per endpoint group, and never retries: a timeout must
// reach the caller as a timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer

	// Bitget publishes separate limits per endpoint family.
	marketLimiter  *rate.Limiter
	tradeLimiter   *rate.Limiter
	accountLimiter *rate.Limiter
}

// NewClient creates a REST client. baseURL may be empty for production.
func NewClient(baseURL string, signer *Signer) *Client {
	if baseURL == "" {
		baseURL = defaultRestURL
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: requestTimeout},
		signer:         signer,
		marketLimiter:  rate.NewLimiter(rate.Limit(20), 10),
		tradeLimiter:   rate.NewLimiter(rate.Limit(10), 5),
		accountLimiter: rate.NewLimiter(rate.Limit(10), 5),
	}
}

// Close wipes the client's credentials.
func (c *Client) Close() {
	c.signer.Wipe()
}

// get performs a public or signed GET. The returned bytes are the
// envelope's data field.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, path string, query url.Values, signed bool) (json.RawMessage, error) {
	requestPath := path
	if len(query) > 0 {
		requestPath = path + "?" + query.Encode()
	}
	return c.do(ctx, limiter, http.MethodGet, requestPath, nil, signed)
}

// post performs a signed POST with a JSON body.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, limiter, http.MethodPost, path, payload, true)
}

func (c *Client) do(ctx context.Context, limiter *rate.Limiter, method, requestPath string, body []byte, signed bool) (json.RawMessage, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, reader)
	if err != nil {
		return nil, err
	}

	if signed {
		if c.signer == nil {
			return nil, errors.New("private endpoint requires credentials")
		}
		for k, v := range c.signer.Headers(method, requestPath, string(body)) {
			req.Header.Set(k, v)
		}
	} else {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if envelope.Code != codeOK {
		return nil, &bizError{code: envelope.Code, msg: envelope.Msg}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return envelope.Data, nil
}

// isTimeout reports whether err is a transport-level timeout: a context
// deadline or a net.Error that timed out. Everything else is an API
// failure for contract purposes.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
