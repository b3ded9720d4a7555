package gateway

import "net/http"

// ErrorKind is the stable failure taxonomy exposed to callers.
type ErrorKind string

const (
	KindArgument           ErrorKind = "ArgumentError"
	KindUnauthorized       ErrorKind = "Unauthorized"
	KindNotFound           ErrorKind = "NotFound"
	KindGatewayTimeout     ErrorKind = "GatewayTimeout"
	KindServiceUnavailable ErrorKind = "ServiceUnavailable"
	KindInternal           ErrorKind = "Internal"
)

// HTTPStatus maps the kind onto a response status.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindArgument:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may repeat the whole call.
func (k ErrorKind) Retryable() bool {
	return k == KindGatewayTimeout || k == KindServiceUnavailable
}

// Error is the failure half of an Outcome. Message is safe to show callers.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// UserProfile is the public view of a directory entry. Attributes missing
// from the entry are empty strings.
type UserProfile struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Title       string `json:"title"`
}

// Outcome of Authenticate. Exactly one of Profile and Err is set.
type Outcome struct {
	Profile *UserProfile
	Err     *Error
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Profile != nil
}

func (o Outcome) label() string {
	if o.OK() {
		return "success"
	}
	return string(o.Err.Kind)
}

func success(p UserProfile) Outcome {
	return Outcome{Profile: &p}
}

func failure(kind ErrorKind, message string) Outcome {
	return Outcome{Err: &Error{Kind: kind, Message: message}}
}
