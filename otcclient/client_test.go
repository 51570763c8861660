package otcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	orgauth "github.com/avetra/orgauth"
)

type staticTokens struct{ token string }

func (s staticTokens) AccessToken() string { return s.token }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		RequestURL:  srv.URL + "/otp/request",
		VerifyURL:   srv.URL + "/otp/verify",
		ServiceKey:  "service-key",
		HTTPTimeout: 5 * time.Second,
	}, nil, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(Config{VerifyURL: "x", ServiceKey: "k"}, nil, nil); err == nil {
		t.Fatal("expected error for missing RequestURL")
	}
	if _, err := NewClient(Config{RequestURL: "x", VerifyURL: "y"}, nil, nil); err == nil {
		t.Fatal("expected error for missing ServiceKey")
	}
}

func TestRequestCodeDecodesResponse(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string
	var gotBody map[string]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(orgauth.OtcEndpointResponse{
			Success:           true,
			Message:           "code sent",
			RemainingRequests: 3,
		})
	})

	resp, err := client.RequestCode(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if !resp.Success || resp.Message != "code sent" || resp.RemainingRequests != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotPath != "/otp/request" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("Authorization = %q, want service key bearer", gotAuth)
	}
	if gotRequestID == "" {
		t.Fatal("X-Request-ID header missing")
	}
	if gotBody["email"] != "alice@example.com" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestRequestCodeNonOKIsTransport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := client.RequestCode(context.Background(), "alice@example.com")
	if !errors.Is(err, orgauth.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestRequestCodeConnectionRefused(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.RequestCode(context.Background(), "alice@example.com")
	if !errors.Is(err, orgauth.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestVerifyCodeSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["code"] != "424242" {
			t.Errorf("code = %q", body["code"])
		}
		json.NewEncoder(w).Encode(orgauth.OtcVerifyResponse{
			Success: true,
			Session: &orgauth.Session{AccessToken: "acc-1", Identity: orgauth.Identity{ID: "id-1"}},
		})
	})

	resp, err := client.VerifyCode(context.Background(), "alice@example.com", "424242")
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if !resp.Success || resp.Session == nil || resp.Session.Identity.ID != "id-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

// The endpoint reports a wrong code with a non-OK status and a JSON verdict in
// the body. That is a decoded refusal, not a transport failure.
func TestVerifyCodeWrongCodeIsDecodedNotTransport(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(orgauth.OtcVerifyResponse{Success: false, Message: "invalid code"})
		})

		resp, err := client.VerifyCode(context.Background(), "alice@example.com", "000000")
		if err != nil {
			t.Fatalf("status %d: VerifyCode: %v", status, err)
		}
		if resp.Success || resp.Message != "invalid code" {
			t.Fatalf("status %d: unexpected response: %+v", status, resp)
		}
	}
}

func TestVerifyCodeServerErrorIsTransport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := client.VerifyCode(context.Background(), "alice@example.com", "424242")
	if !errors.Is(err, orgauth.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestVerifyCodeGarbageBodyIsTransport(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.VerifyCode(context.Background(), "alice@example.com", "424242")
	if !errors.Is(err, orgauth.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Fatalf("err = %v, want decode failure", err)
	}
}

func TestBearerPrefersUserToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(orgauth.OtcEndpointResponse{Success: true})
	}))
	t.Cleanup(srv.Close)

	tokens := staticTokens{token: "user-token"}
	client, err := NewClient(Config{
		RequestURL: srv.URL + "/otp/request",
		VerifyURL:  srv.URL + "/otp/verify",
		ServiceKey: "service-key",
	}, tokens, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.RequestCode(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if gotAuth != "Bearer user-token" {
		t.Fatalf("Authorization = %q, want user token bearer", gotAuth)
	}
}

func TestBearerFallsBackWhenTokenEmpty(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(orgauth.OtcEndpointResponse{Success: true})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		RequestURL: srv.URL + "/otp/request",
		VerifyURL:  srv.URL + "/otp/verify",
		ServiceKey: "service-key",
	}, staticTokens{}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.RequestCode(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("Authorization = %q, want service key bearer", gotAuth)
	}
}
