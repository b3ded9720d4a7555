package ldaps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// noAttributes is the RFC 4511 OID that selects no attributes.
const noAttributes = "1.1"

// credentialAttributes are never requested, whatever the configuration says.
var credentialAttributes = map[string]struct{}{
	"*":                       {},
	"userpassword":            {},
	"unicodepwd":              {},
	"ntpwdhistory":            {},
	"lmpwdhistory":            {},
	"dbcspwd":                 {},
	"supplementalcredentials": {},
	"authpassword":            {},
}

// Bind runs one connect, bind, search cycle for username and reports the
// classified outcome. The connection is closed on every return path, and is
// closed early if ctx or the configured timeout expires mid-call.
func (c *Client) Bind(ctx context.Context, username, password string) Result {
	if username == "" || password == "" {
		return argumentError("username and password are required")
	}
	identity, err := BindIdentity(c.cfg.BindTemplate, username)
	if err != nil {
		return argumentError("bind identity could not be built")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		res := classify(ctx, phaseDial, err)
		c.logger.Error("ldap.dial_failed", zap.Error(err), zap.String("result", res.Kind.String()))
		return res
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	if err := conn.Bind(identity, password); err != nil {
		res := classify(ctx, phaseBind, err)
		if res.Kind == KindInvalidCredentials {
			c.logger.Info("ldap.bind_rejected", zap.String("username", username), zap.Uint16("code", resultCode(err)))
		} else {
			c.logger.Error("ldap.bind_failed", zap.Error(err), zap.String("username", username), zap.String("result", res.Kind.String()))
		}
		return res
	}

	req := c.searchRequest(ctx, username)
	sr, err := conn.Search(req)
	if err != nil {
		// A size limit hit still carries the entries read so far.
		if !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) || sr == nil || len(sr.Entries) == 0 {
			res := classify(ctx, phaseSearch, err)
			c.logger.Error("ldap.search_failed", zap.Error(err), zap.String("filter", req.Filter), zap.String("username", username))
			return res
		}
	}

	if len(sr.Entries) == 0 {
		c.logger.Warn("ldap.entry_not_found", zap.String("username", username), zap.String("base_dn", c.cfg.BaseDN))
		return notFound()
	}
	if len(sr.Entries) > 1 {
		c.logger.Warn("ldap.multiple_entries", zap.String("username", username), zap.String("chosen_dn", sr.Entries[0].DN))
	}

	return bound(extractAttributes(sr.Entries[0], req.Attributes))
}

// searchRequest looks up username by the account attribute under BaseDN.
// Two entries are enough to notice duplicates; only the first is used.
func (c *Client) searchRequest(ctx context.Context, username string) *ldap.SearchRequest {
	filter := fmt.Sprintf("(%s=%s)", c.cfg.AccountAttribute, ldap.EscapeFilter(username))

	timeLimit := 0
	if dl, ok := ctx.Deadline(); ok {
		timeLimit = int(math.Ceil(time.Until(dl).Seconds()))
		if timeLimit < 1 {
			timeLimit = 1
		}
	}

	return ldap.NewSearchRequest(
		c.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2,
		timeLimit,
		false,
		filter,
		requestedAttributes(c.cfg.Attributes),
		nil,
	)
}

func requestedAttributes(configured []string) []string {
	out := make([]string, 0, len(configured))
	seen := make(map[string]struct{}, len(configured))
	for _, name := range configured {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, secret := credentialAttributes[key]; secret {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(name))
	}
	// An empty list asks the server for every user attribute; 1.1 asks for none.
	if len(out) == 0 {
		out = append(out, noAttributes)
	}
	return out
}

func extractAttributes(entry *ldap.Entry, names []string) Attributes {
	attrs := make(Attributes, len(names))
	for _, name := range names {
		if values := entry.GetEqualFoldAttributeValues(name); len(values) > 0 {
			attrs[name] = strings.TrimSpace(values[0])
		}
	}
	return attrs
}

func resultCode(err error) uint16 {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return ldapErr.ResultCode
	}
	return 0
}
