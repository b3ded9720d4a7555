package ldaps

import "strings"

// Kind classifies the outcome of one Bind cycle.
type Kind int

const (
	KindBound Kind = iota + 1
	KindNotFound
	KindInvalidCredentials
	KindTransportError
	KindTimeout
	KindArgumentError
)

func (k Kind) String() string {
	switch k {
	case KindBound:
		return "bound"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindTransportError:
		return "transport_error"
	case KindTimeout:
		return "timeout"
	case KindArgumentError:
		return "argument_error"
	default:
		return "unknown"
	}
}

// Attributes maps a requested attribute name to its first value.
// Attributes the entry did not carry are absent from the map.
// Names compare case-insensitively, as LDAP attribute descriptions do.
type Attributes map[string]string

// Get returns the value for name, or "" when absent.
func (a Attributes) Get(name string) string {
	v, _ := a.Lookup(name)
	return v
}

// Lookup reports whether name was present on the entry.
func (a Attributes) Lookup(name string) (string, bool) {
	if v, ok := a[name]; ok {
		return v, true
	}
	for k, v := range a {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Result is the tagged outcome of Bind. Attributes is set only for KindBound;
// Detail is a caller-safe description for the failure kinds. Err keeps the
// underlying cause for logging and must not be shown to end users.
type Result struct {
	Kind       Kind
	Attributes Attributes
	Detail     string
	Err        error
}

func bound(attrs Attributes) Result {
	return Result{Kind: KindBound, Attributes: attrs}
}

func notFound() Result {
	return Result{Kind: KindNotFound, Detail: "no directory entry matched"}
}

func invalidCredentials(err error) Result {
	return Result{Kind: KindInvalidCredentials, Detail: "directory rejected the credentials", Err: err}
}

func transportError(detail string, err error) Result {
	return Result{Kind: KindTransportError, Detail: detail, Err: err}
}

func timeout(detail string, err error) Result {
	return Result{Kind: KindTimeout, Detail: detail, Err: err}
}

func argumentError(detail string) Result {
	return Result{Kind: KindArgumentError, Detail: detail}
}
