// Package auth resolves caller identity. Service-to-service routes use a
// shared API token; browser uploads carry a signed user token whose subject
// is the user ID.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth validates request credentials.
type Auth struct {
	apiToken     string
	uploadSecret []byte
}

// New creates an Auth. apiToken guards the JSON API; uploadSecret verifies
// user upload tokens (HS256).
func New(apiToken string, uploadSecret []byte) *Auth {
	return &Auth{apiToken: apiToken, uploadSecret: uploadSecret}
}

// CheckAPIToken reports whether the request carries the shared API token in
// the Authorization header. A "Bearer " prefix is accepted.
func (a *Auth) CheckAPIToken(r *http.Request) bool {
	if a.apiToken == "" {
		return false
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.apiToken)) == 1
}

// ResolveUploadToken verifies the signed user token in the Token header and
// returns the user ID it names.
func (a *Auth) ResolveUploadToken(r *http.Request) (string, error) {
	raw := r.Header.Get("Token")
	if raw == "" {
		return "", fmt.Errorf("missing user token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return a.uploadSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("invalid user token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("user token has no subject")
	}
	return sub, nil
}
