// Package auth inspects bearer tokens for display.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Info describes a token. Signatures are never checked: the token belongs
// to the API under test, not to this tool.
type Info struct {
	Token string
	// JWT is false for opaque tokens, which carry no readable content.
	JWT     bool
	Header  map[string]any
	Claims  jwt.MapClaims
	Subject string
	Issuer  string
	Expires time.Time
	Issued  time.Time
}

// Inspect decodes token. A value that does not parse as a JWT is reported
// as opaque rather than as an error. A leading "Bearer " is ignored.
func Inspect(token string) Info {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	info := Info{Token: token}
	if strings.Count(token, ".") != 2 {
		return info
	}

	claims := jwt.MapClaims{}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return info
	}
	info.JWT = true
	info.Header = parsed.Header
	info.Claims = claims
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.Expires = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.Issued = iat.Time
	}
	return info
}

// Expired reports whether the token carries an expiry before now.
func (i Info) Expired(now time.Time) bool {
	return !i.Expires.IsZero() && now.After(i.Expires)
}

// Masked returns the token with its middle hidden, for logs and headers.
func Masked(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + token[len(token)-4:]
}
