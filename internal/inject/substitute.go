package inject

import (
	"strings"

	"github.com/Guliveer/secretsinject/internal/secrets"
)

// Placeholder tokens, quotes included.
const (
	SSIDPlaceholder     = `"` + secrets.KeySSID + `"`
	PasswordPlaceholder = `"` + secrets.KeyPassword + `"`
)

// Counts reports how many placeholders a substitution replaced.
type Counts struct {
	SSID     int
	Password int
}

// Substitute replaces every "SSID" and then every "PASSWORD" in src with the
// quoted credential values. Matching is literal and case-sensitive and
// ignores context, so comments and string contents are rewritten too.
// The second pass runs over the output of the first.
func Substitute(src string, creds secrets.Credentials) (string, Counts) {
	var c Counts

	c.SSID = strings.Count(src, SSIDPlaceholder)
	if c.SSID > 0 {
		src = strings.ReplaceAll(src, SSIDPlaceholder, quote(creds.SSID))
	}

	c.Password = strings.Count(src, PasswordPlaceholder)
	if c.Password > 0 {
		src = strings.ReplaceAll(src, PasswordPlaceholder, quote(creds.Password))
	}

	return src, c
}

// quote wraps v in double quotes without escaping.
func quote(v string) string {
	return `"` + v + `"`
}
