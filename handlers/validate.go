package handlers

import (
	"fmt"
	"regexp"
	"strings"
)

var validUser = regexp.MustCompile(`^[A-Za-z0-9@._-]{1,64}$`)

// LoginRequest is the body of the authenticate and token endpoints.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SanitizeLogin trims the username and rejects characters no directory
// account name uses. Empty fields pass through so the gateway can report
// them as missing credentials. The password is never altered.
func SanitizeLogin(req *LoginRequest) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" {
		return nil
	}
	if !validUser.MatchString(req.Username) {
		return fmt.Errorf("username has invalid characters: use letters, numbers, @, ., _, or - (max 64)")
	}
	return nil
}
