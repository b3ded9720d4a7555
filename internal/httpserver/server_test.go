package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"go.uber.org/zap"

	"github.com/lugatuic/goberus-auth/config"
	"github.com/lugatuic/goberus-auth/gateway"
	"github.com/lugatuic/goberus-auth/internal/httpserver"
	"github.com/lugatuic/goberus-auth/token"
)

type fakeClient struct {
	pingErr error
}

func (f *fakeClient) Ping(ctx context.Context) error {
	return f.pingErr
}

type fakeAuth struct {
	authenticate func(ctx context.Context, username, password string) gateway.Outcome
	issueErr     error
	tokens       bool
}

func (f *fakeAuth) Authenticate(ctx context.Context, username, password string) gateway.Outcome {
	if f.authenticate != nil {
		return f.authenticate(ctx, username, password)
	}
	return gateway.Outcome{Profile: &gateway.UserProfile{Username: username}}
}

func (f *fakeAuth) IssueToken(username string) (*token.Token, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &token.Token{Value: "signed", Type: token.TypeBearer, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}, nil
}

func (f *fakeAuth) TokensEnabled() bool {
	return f.tokens
}

func newHandler(client *fakeClient, auth *fakeAuth, opts ...httpserver.Option) http.Handler {
	cfg := &config.Config{BindAddr: ":8080"}
	return httpserver.New(cfg, zap.NewNop(), client, auth, opts...).Handler()
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("/livez returns OK", func(t *testing.T) {
		is := is.New(t)
		handler := newHandler(&fakeClient{}, &fakeAuth{})

		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		is.Equal(rr.Code, http.StatusOK)
		is.Equal(rr.Header().Get("Content-Type"), "application/json; charset=utf-8")

		var resp map[string]string
		is.NoErr(json.Unmarshal(rr.Body.Bytes(), &resp))
		is.Equal(resp["status"], "ok")
	})

	t.Run("/readyz returns OK when LDAP ping succeeds", func(t *testing.T) {
		is := is.New(t)
		handler := newHandler(&fakeClient{}, &fakeAuth{})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		is.Equal(rr.Code, http.StatusOK)

		var resp map[string]string
		is.NoErr(json.Unmarshal(rr.Body.Bytes(), &resp))
		is.Equal(resp["status"], "ready")
	})

	t.Run("/readyz returns degraded when LDAP ping fails", func(t *testing.T) {
		is := is.New(t)
		handler := newHandler(&fakeClient{pingErr: errors.New("connection failed")}, &fakeAuth{})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		is.Equal(rr.Code, http.StatusServiceUnavailable)

		var resp map[string]string
		is.NoErr(json.Unmarshal(rr.Body.Bytes(), &resp))
		is.Equal(resp["status"], "degraded")
	})
}

func TestBusinessRoutes(t *testing.T) {
	t.Run("/api/authenticate POST success", func(t *testing.T) {
		is := is.New(t)
		handler := newHandler(&fakeClient{}, &fakeAuth{})

		body := strings.NewReader(`{"username":"ada","password":"correct-pw"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/authenticate", body)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		is.Equal(rr.Code, http.StatusOK)
		is.True(rr.Header().Get("X-Request-ID") != "")
		is.True(strings.Contains(rr.Body.String(), `"username":"ada"`))
	})

	t.Run("/api/authenticate failure uses kind status", func(t *testing.T) {
		is := is.New(t)
		auth := &fakeAuth{authenticate: func(ctx context.Context, username, password string) gateway.Outcome {
			return gateway.Outcome{Err: &gateway.Error{Kind: gateway.KindGatewayTimeout, Message: "directory bind timed out"}}
		}}
		handler := newHandler(&fakeClient{}, auth)

		body := strings.NewReader(`{"username":"ada","password":"pw"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/authenticate", body)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		is.Equal(rr.Code, http.StatusGatewayTimeout)
		var resp map[string]string
		is.NoErr(json.Unmarshal(rr.Body.Bytes(), &resp))
		is.Equal(resp["errorKind"], "GatewayTimeout")
	})

	t.Run("/api/token issue error returns sanitized JSON error", func(t *testing.T) {
		is := is.New(t)
		auth := &fakeAuth{tokens: true, issueErr: errors.New("signing failed with secret details")}
		handler := newHandler(&fakeClient{}, auth)

		body := strings.NewReader(`{"username":"ada","password":"correct-pw"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/token", body)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		is.Equal(rr.Code, http.StatusInternalServerError)
		is.Equal(rr.Header().Get("Content-Type"), "application/json; charset=utf-8")

		var resp map[string]string
		is.NoErr(json.Unmarshal(rr.Body.Bytes(), &resp))
		is.Equal(resp["message"], "internal error")
		is.True(!strings.Contains(rr.Body.String(), "secret details"))
	})

	t.Run("/api/token POST success", func(t *testing.T) {
		is := is.New(t)
		handler := newHandler(&fakeClient{}, &fakeAuth{tokens: true})

		body := strings.NewReader(`{"username":"ada","password":"correct-pw"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/token", body)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		is.Equal(rr.Code, http.StatusOK)
		var resp map[string]any
		is.NoErr(json.Unmarshal(rr.Body.Bytes(), &resp))
		is.Equal(resp["access_token"], "signed")
		is.Equal(resp["token_type"], "Bearer")
	})

	t.Run("unsupported method returns JSON error", func(t *testing.T) {
		for _, path := range []string{"/api/authenticate", "/api/token"} {
			is := is.New(t)
			handler := newHandler(&fakeClient{}, &fakeAuth{tokens: true})

			req := httptest.NewRequest(http.MethodGet, path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			is.Equal(rr.Code, http.StatusMethodNotAllowed)
			is.Equal(rr.Header().Get("Allow"), http.MethodPost)

			var resp map[string]string
			is.NoErr(json.Unmarshal(rr.Body.Bytes(), &resp))
			is.Equal(resp["message"], "method not allowed")
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	t.Run("absent without handler", func(t *testing.T) {
		is := is.New(t)
		handler := newHandler(&fakeClient{}, &fakeAuth{})

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		is.Equal(rr.Code, http.StatusNotFound)
	})

	t.Run("served when configured", func(t *testing.T) {
		is := is.New(t)
		metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("goberus_auth_outcomes_total 1\n"))
		})
		handler := newHandler(&fakeClient{}, &fakeAuth{}, httpserver.WithMetricsHandler(metricsHandler))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		is.Equal(rr.Code, http.StatusOK)
		is.True(strings.Contains(rr.Body.String(), "goberus_auth_outcomes_total"))
	})
}

func TestRequestIDPreservation(t *testing.T) {
	is := is.New(t)
	handler := newHandler(&fakeClient{}, &fakeAuth{})

	existingID := "my-custom-request-id"
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-ID", existingID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	is.Equal(rr.Header().Get("X-Request-ID"), existingID)
}
