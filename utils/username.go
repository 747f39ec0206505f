package utils

import (
	"regexp"
	"strings"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.\-]{3,32}$`)

// ValidUsername reports whether name is 3-32 letters, digits, '_', '-' or '.'.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// UsernameKey folds a username to the form used for uniqueness, so "Zoë"
// and "zoe" collide.
func UsernameKey(name string) string {
	return strings.TrimSpace(cases.Fold().String(unidecode.Unidecode(name)))
}
