package ldaps

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

type phase string

const (
	phaseDial   phase = "connect"
	phaseBind   phase = "bind"
	phaseSearch phase = "search"
)

// classify turns an error from one phase of the cycle into a Result.
// ctx is the per-call context; its expiry wins over whatever error the
// closed connection produced.
func classify(ctx context.Context, p phase, err error) Result {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		return timeout("directory "+string(p)+" timed out", err)
	case errors.Is(ctx.Err(), context.Canceled):
		return transportError("directory "+string(p)+" canceled", err)
	case p == phaseBind && isCredentialRejection(err):
		return invalidCredentials(err)
	case p == phaseSearch && ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		// The search base itself is missing: a misconfigured BaseDN, not an absent user.
		return transportError("directory search base not found", err)
	default:
		return transportError("directory "+string(p)+" failed", err)
	}
}

// isCredentialRejection reports result codes a server uses to refuse a simple
// bind. Unknown DNs are folded in so callers cannot probe for usernames.
func isCredentialRejection(err error) bool {
	for _, code := range []uint16{
		ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultUnwillingToPerform,
		ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultNoSuchObject,
	} {
		if ldap.IsErrorWithCode(err, code) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultTimeLimitExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// *ldap.Error may hold the network error without exposing it to errors.As.
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) && ldapErr.Err != nil {
		if errors.As(ldapErr.Err, &netErr) && netErr.Timeout() {
			return true
		}
		err = ldapErr.Err
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout")
}
