package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	orgauth "github.com/avetra/orgauth"
)

// Config carries the provider endpoint and service credential.
type Config struct {
	// BaseURL is the provider's auth API root, e.g. https://x.example.co/auth/v1.
	BaseURL string
	// APIKey is the service-level credential sent on every request.
	APIKey string
	// HTTPTimeout bounds each round-trip when the supplied http.Client has no
	// timeout of its own.
	HTTPTimeout time.Duration
}

// Client is an HTTP CredentialGateway. Safe for concurrent use; the only
// mutable state is the current session token pair.
type Client struct {
	config Config
	http   *http.Client

	mu      sync.Mutex
	access  string
	refresh string
}

// NewClient creates a Client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway: BaseURL required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gateway: APIKey required")
	}
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{config: cfg, http: httpClient}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

// SignInWithPassword implements [orgauth.CredentialGateway].
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*orgauth.Session, error) {
	body := map[string]string{"email": email, "password": password}
	resp, status, err := c.post(ctx, "/token?grant_type=password", body, "")
	if err != nil {
		return nil, fmt.Errorf("%w: password grant: %v", orgauth.ErrTransport, err)
	}

	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		// Wrong credentials, not infrastructure. Terminal for this attempt.
		return nil, orgauth.ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: password grant: status %d", orgauth.ErrTransport, status)
	}

	return c.adoptTokens(resp)
}

// SignOut implements [orgauth.CredentialGateway]. The local token pair clears
// before the remote call, so local cleanup succeeds even when the request
// does not.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	access := c.access
	c.access = ""
	c.refresh = ""
	c.mu.Unlock()

	if access == "" {
		return nil
	}

	_, status, err := c.post(ctx, "/logout", nil, access)
	if err != nil {
		return fmt.Errorf("%w: logout: %v", orgauth.ErrTransport, err)
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return fmt.Errorf("%w: logout: status %d", orgauth.ErrTransport, status)
	}
	return nil
}

// UpdatePassword implements [orgauth.CredentialGateway].
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	c.mu.Lock()
	access := c.access
	c.mu.Unlock()
	if access == "" {
		return orgauth.ErrNotAuthenticated
	}

	payload, err := json.Marshal(map[string]string{"password": newPassword})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", orgauth.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.config.BaseURL+"/user", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: request: %v", orgauth.ErrTransport, err)
	}
	c.decorate(req, access)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: update password: %v", orgauth.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: update password: %s", orgauth.ErrTransport, readProviderMessage(resp.Body, resp.StatusCode))
	}
	return nil
}

// RefreshSession implements [orgauth.CredentialGateway]. Returns (nil, nil)
// when there is no session to recover; failures leave the held tokens
// untouched so the call is safe to repeat.
func (c *Client) RefreshSession(ctx context.Context) (*orgauth.Session, error) {
	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()
	if refresh == "" {
		return nil, nil
	}

	body := map[string]string{"refresh_token": refresh}
	resp, status, err := c.post(ctx, "/token?grant_type=refresh_token", body, "")
	if err != nil {
		return nil, fmt.Errorf("%w: refresh grant: %v", orgauth.ErrTransport, err)
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		// The stored refresh token is no longer good; there is no session.
		c.mu.Lock()
		c.access = ""
		c.refresh = ""
		c.mu.Unlock()
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: refresh grant: status %d", orgauth.ErrTransport, status)
	}

	return c.adoptTokens(resp)
}

// SetRefreshToken seeds the client with a persisted refresh token before the
// first Resume, e.g. one restored from secure storage.
func (c *Client) SetRefreshToken(token string) {
	c.mu.Lock()
	c.refresh = token
	c.mu.Unlock()
}

// AccessToken returns the current bearer token, or "".
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

func (c *Client) adoptTokens(raw []byte) (*orgauth.Session, error) {
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", orgauth.ErrTransport, err)
	}
	if tr.AccessToken == "" || tr.User.ID == "" {
		return nil, fmt.Errorf("%w: token response incomplete", orgauth.ErrTransport)
	}

	expiresAt := time.Time{}
	if tr.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else if exp, ok := tokenExpiry(tr.AccessToken); ok {
		expiresAt = exp
	}

	c.mu.Lock()
	c.access = tr.AccessToken
	c.refresh = tr.RefreshToken
	c.mu.Unlock()

	return &orgauth.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt,
		Identity: orgauth.Identity{
			ID:    tr.User.ID,
			Email: tr.User.Email,
		},
	}, nil
}

// tokenExpiry reads the exp claim without verifying the signature. Fallback
// only; the token stays opaque for every other purpose.
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) post(ctx context.Context, path string, body any, bearer string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	c.decorate(req, bearer)

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

func (c *Client) decorate(req *http.Request, bearer string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

func readProviderMessage(body io.Reader, status int) string {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		switch {
		case er.ErrorDescription != "":
			return er.ErrorDescription
		case er.Message != "":
			return er.Message
		case er.Error != "":
			return er.Error
		}
	}
	return fmt.Sprintf("status %d", status)
}
