// Package gateway is the entry point for authenticating a user against the
// directory and, on request, issuing an access token for them.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lugatuic/goberus-auth/internal/metrics"
	"github.com/lugatuic/goberus-auth/ldaps"
	"github.com/lugatuic/goberus-auth/token"
)

const internalMessage = "internal error"

// ErrTokensDisabled is returned by IssueToken when no signing key is configured.
var ErrTokensDisabled = errors.New("token issuance is not configured")

// Directory performs one credential check and profile lookup.
type Directory interface {
	Bind(ctx context.Context, username, password string) ldaps.Result
}

// TokenIssuer signs tokens for an authenticated username.
type TokenIssuer interface {
	Issue(username string) (*token.Token, error)
}

// profileAttributes maps profile fields onto directory attribute names.
var profileAttributes = struct {
	DisplayName, Email, Department, Title string
}{
	DisplayName: "displayName",
	Email:       "mail",
	Department:  "department",
	Title:       "title",
}

// Gateway holds no per-call state and is safe for concurrent use.
type Gateway struct {
	dir     Directory
	tokens  TokenIssuer
	logger  *zap.Logger
	metrics metrics.Recorder
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTokenIssuer enables IssueToken.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(g *Gateway) {
		g.tokens = issuer
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m metrics.Recorder) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New creates a Gateway over dir.
func New(dir Directory, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		dir:     dir,
		logger:  logger,
		metrics: metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TokensEnabled reports whether IssueToken can succeed.
func (g *Gateway) TokensEnabled() bool {
	return g.tokens != nil
}

// Authenticate verifies username/password against the directory and returns
// the user's profile or a classified failure. It never retries.
func (g *Gateway) Authenticate(ctx context.Context, username, password string) (out Outcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("auth.internal_fault",
				zap.Any("panic", rec),
				zap.String("username", username),
				zap.Stack("stack"),
			)
			out = failure(KindInternal, internalMessage)
		}
		g.metrics.RecordAuthOutcome(out.label(), time.Since(start))
	}()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return failure(KindArgument, "missing credentials")
	}

	res := g.dir.Bind(ctx, username, password)
	out = g.mapResult(username, res)

	if out.OK() {
		g.logger.Info("auth.success", zap.String("username", username), zap.Duration("duration", time.Since(start)))
	} else {
		g.logger.Warn("auth.failure",
			zap.String("username", username),
			zap.String("kind", string(out.Err.Kind)),
			zap.String("directory_result", res.Kind.String()),
			zap.NamedError("cause", res.Err),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return out
}

func (g *Gateway) mapResult(username string, res ldaps.Result) Outcome {
	switch res.Kind {
	case ldaps.KindBound:
		return success(UserProfile{
			Username:    username,
			DisplayName: res.Attributes.Get(profileAttributes.DisplayName),
			Email:       res.Attributes.Get(profileAttributes.Email),
			Department:  res.Attributes.Get(profileAttributes.Department),
			Title:       res.Attributes.Get(profileAttributes.Title),
		})
	case ldaps.KindNotFound:
		return failure(KindNotFound, "user not found")
	case ldaps.KindInvalidCredentials:
		return failure(KindUnauthorized, "invalid credentials")
	case ldaps.KindArgumentError:
		return failure(KindArgument, res.Detail)
	case ldaps.KindTimeout:
		return failure(KindGatewayTimeout, res.Detail)
	case ldaps.KindTransportError:
		return failure(KindServiceUnavailable, res.Detail)
	default:
		g.logger.Error("auth.unknown_directory_result",
			zap.Int("kind", int(res.Kind)),
			zap.String("username", username),
			zap.NamedError("cause", res.Err),
		)
		return failure(KindInternal, internalMessage)
	}
}

// IssueToken signs a one-hour token for username. Call it only after a
// successful Authenticate; it does not consult the directory.
func (g *Gateway) IssueToken(username string) (*token.Token, error) {
	if g.tokens == nil {
		return nil, ErrTokensDisabled
	}
	tok, err := g.tokens.Issue(username)
	g.metrics.RecordTokenIssued(err == nil)
	if err != nil {
		g.logger.Error("token.issue_failed", zap.Error(err), zap.String("username", username))
		return nil, err
	}
	g.logger.Info("token.issued", zap.String("username", username), zap.Time("expires_at", tok.ExpiresAt))
	return tok, nil
}
