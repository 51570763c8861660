package otcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	orgauth "github.com/avetra/orgauth"
)

// TokenSource yields the bearer token of the current user session, or "".
type TokenSource interface {
	AccessToken() string
}

// Config carries the endpoint location and service credential.
type Config struct {
	// RequestURL receives code requests.
	RequestURL string
	// VerifyURL receives verification attempts.
	VerifyURL string
	// ServiceKey is the fallback bearer credential for unauthenticated calls.
	ServiceKey string
	// HTTPTimeout bounds each round-trip when the supplied http.Client has no
	// timeout of its own.
	HTTPTimeout time.Duration
}

// Client is an HTTP OtcSender.
type Client struct {
	config Config
	http   *http.Client
	tokens TokenSource
}

// NewClient creates a Client. tokens may be nil when no user-session bearer
// will ever be available; httpClient may be nil.
func NewClient(cfg Config, tokens TokenSource, httpClient *http.Client) (*Client, error) {
	if cfg.RequestURL == "" || cfg.VerifyURL == "" {
		return nil, fmt.Errorf("otcclient: RequestURL and VerifyURL required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("otcclient: ServiceKey required")
	}
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{config: cfg, http: httpClient, tokens: tokens}, nil
}

// RequestCode implements [orgauth.OtcSender].
func (c *Client) RequestCode(ctx context.Context, email string) (orgauth.OtcEndpointResponse, error) {
	raw, status, err := c.post(ctx, c.config.RequestURL, map[string]string{"email": email})
	if err != nil {
		return orgauth.OtcEndpointResponse{}, fmt.Errorf("%w: request code: %v", orgauth.ErrTransport, err)
	}
	if status != http.StatusOK {
		return orgauth.OtcEndpointResponse{}, fmt.Errorf("%w: request code: status %d", orgauth.ErrTransport, status)
	}

	var resp orgauth.OtcEndpointResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return orgauth.OtcEndpointResponse{}, fmt.Errorf("%w: decode: %v", orgauth.ErrTransport, err)
	}
	return resp, nil
}

// VerifyCode implements [orgauth.OtcSender]. A non-OK status for a wrong code
// is still a decoded response, not a transport failure; the endpoint encodes
// the verdict in the body.
func (c *Client) VerifyCode(ctx context.Context, email, code string) (orgauth.OtcVerifyResponse, error) {
	raw, status, err := c.post(ctx, c.config.VerifyURL, map[string]string{"email": email, "code": code})
	if err != nil {
		return orgauth.OtcVerifyResponse{}, fmt.Errorf("%w: verify code: %v", orgauth.ErrTransport, err)
	}
	if status != http.StatusOK && status != http.StatusUnauthorized && status != http.StatusBadRequest {
		return orgauth.OtcVerifyResponse{}, fmt.Errorf("%w: verify code: status %d", orgauth.ErrTransport, status)
	}

	var resp orgauth.OtcVerifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return orgauth.OtcVerifyResponse{}, fmt.Errorf("%w: decode: %v", orgauth.ErrTransport, err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]string) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

func (c *Client) bearer() string {
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			return token
		}
	}
	return c.config.ServiceKey
}
