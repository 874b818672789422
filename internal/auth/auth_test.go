package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestCheckAPIToken(t *testing.T) {
	a := New("secret-token", nil)

	r := httptest.NewRequest("POST", "/api/vector/search", nil)
	if a.CheckAPIToken(r) {
		t.Error("request without token should be rejected")
	}

	r.Header.Set("Authorization", "secret-token")
	if !a.CheckAPIToken(r) {
		t.Error("raw token should be accepted")
	}

	r.Header.Set("Authorization", "Bearer secret-token")
	if !a.CheckAPIToken(r) {
		t.Error("bearer token should be accepted")
	}

	r.Header.Set("Authorization", "Bearer wrong")
	if a.CheckAPIToken(r) {
		t.Error("wrong token should be rejected")
	}
}

func TestCheckAPIToken_EmptyConfiguredToken(t *testing.T) {
	a := New("", nil)
	r := httptest.NewRequest("POST", "/api/vector/search", nil)
	r.Header.Set("Authorization", "")
	if a.CheckAPIToken(r) {
		t.Error("empty configured token must never authenticate")
	}
}

func signToken(t *testing.T, secret []byte, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestResolveUploadToken(t *testing.T) {
	secret := []byte("upload-secret")
	a := New("api", secret)

	r := httptest.NewRequest("POST", "/api/index/local-file", nil)
	if _, err := a.ResolveUploadToken(r); err == nil {
		t.Error("missing token should fail")
	}

	r.Header.Set("Token", signToken(t, secret, "user-42"))
	userID, err := a.ResolveUploadToken(r)
	if err != nil {
		t.Fatalf("ResolveUploadToken() error = %v", err)
	}
	if userID != "user-42" {
		t.Errorf("userID = %q, want user-42", userID)
	}

	r.Header.Set("Token", signToken(t, []byte("other-secret"), "user-42"))
	if _, err := a.ResolveUploadToken(r); err == nil {
		t.Error("token signed with wrong secret should fail")
	}
}
