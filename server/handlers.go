package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/lugatuic/goberus-auth/gateway"
	"github.com/lugatuic/goberus-auth/handlers"
	"github.com/lugatuic/goberus-auth/token"
)

// Authenticator is the gateway surface the HTTP layer needs.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) gateway.Outcome
	IssueToken(username string) (*token.Token, error)
	TokensEnabled() bool
}

type response struct {
	Status      string               `json:"status"`
	User        *gateway.UserProfile `json:"user,omitempty"`
	ErrorKind   gateway.ErrorKind    `json:"errorKind,omitempty"`
	Message     string               `json:"message,omitempty"`
	AccessToken string               `json:"access_token,omitempty"`
	TokenType   string               `json:"token_type,omitempty"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
}

// HandleAuthenticate serves POST /api/authenticate.
func HandleAuthenticate(auth Authenticator, w http.ResponseWriter, r *http.Request) error {
	out, ok := authenticate(auth, w, r)
	if !ok {
		return nil
	}
	return writeJSON(w, http.StatusOK, response{Status: "success", User: out.Profile})
}

// HandleToken serves POST /api/token: authenticate, then issue a token.
func HandleToken(auth Authenticator, w http.ResponseWriter, r *http.Request) error {
	if !auth.TokensEnabled() {
		return writeError(w, gateway.KindNotFound, "token issuance is not enabled")
	}

	out, ok := authenticate(auth, w, r)
	if !ok {
		return nil
	}

	tok, err := auth.IssueToken(out.Profile.Username)
	if err != nil {
		if errors.Is(err, gateway.ErrTokensDisabled) {
			return writeError(w, gateway.KindNotFound, "token issuance is not enabled")
		}
		return err
	}

	return writeJSON(w, http.StatusOK, response{
		Status:      "success",
		User:        out.Profile,
		AccessToken: tok.Value,
		TokenType:   tok.Type,
		ExpiresAt:   &tok.ExpiresAt,
	})
}

// authenticate decodes the login body and runs the gateway. On any failure it
// has already written the response and returns false.
func authenticate(auth Authenticator, w http.ResponseWriter, r *http.Request) (gateway.Outcome, bool) {
	defer func() {
		if err := r.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close request body: %v\n", err)
		}
	}()

	var req handlers.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		// The decoder error can quote body bytes, which may be the password.
		_ = writeError(w, gateway.KindArgument, "invalid json")
		return gateway.Outcome{}, false
	}
	if err := handlers.SanitizeLogin(&req); err != nil {
		_ = writeError(w, gateway.KindArgument, "invalid input: "+err.Error())
		return gateway.Outcome{}, false
	}

	ctxTimeout, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	out := auth.Authenticate(ctxTimeout, req.Username, req.Password)
	if !out.OK() {
		_ = writeError(w, out.Err.Kind, out.Err.Message)
		return out, false
	}
	return out, true
}

func writeError(w http.ResponseWriter, kind gateway.ErrorKind, message string) error {
	return writeJSON(w, kind.HTTPStatus(), response{Status: "error", ErrorKind: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
