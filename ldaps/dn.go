package ldaps

import (
	"fmt"
	"strings"

	"github.com/lugatuic/goberus-auth/config"
)

func escapeDNComponent(s string) string {
	var builder strings.Builder
	for i, r := range s {
		isSpecial := false
		switch r {
		case '\\', ',', '+', '"', '<', '>', ';', '#', '=':
			isSpecial = true
		}

		if isSpecial || (i == 0 && r == ' ') || (i == len(s)-1 && r == ' ') {
			builder.WriteRune('\\')
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// BindIdentity expands template into the identity used for the simple bind.
// Templates such as "uid={username},ou=users,dc=example,dc=com" get the
// username DN-escaped; "{username}@example.com" style templates take it as is.
func BindIdentity(template, username string) (string, error) {
	idx := strings.Index(template, config.UsernamePlaceholder)
	if idx < 0 {
		return "", fmt.Errorf("bind template %q has no %s placeholder", template, config.UsernamePlaceholder)
	}

	value := username
	if strings.HasSuffix(strings.TrimSpace(template[:idx]), "=") {
		value = escapeDNComponent(username)
	}
	return strings.ReplaceAll(template, config.UsernamePlaceholder, value), nil
}
