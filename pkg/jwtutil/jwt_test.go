package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig() JWTConfig {
	return JWTConfig{
		SigningKey: "test-secret-key",
		Expiration: 30 * time.Minute,
		Issuer:     "test-issuer",
	}
}

func TestJWTUtil_GenerateAndValidate(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.GenerateToken("65f0c0ffee0000000000abcd")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}

	claims, err := util.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "65f0c0ffee0000000000abcd" {
		t.Errorf("claims.Subject = %v, want %v", claims.Subject, "65f0c0ffee0000000000abcd")
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("claims.Issuer = %v, want %v", claims.Issuer, "test-issuer")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Errorf("token lifetime = %v, want %v", got, 30*time.Minute)
	}
}

func TestJWTUtil_DeterministicForSameInstant(t *testing.T) {
	util := NewJWTUtil(testConfig())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	util.now = func() time.Time { return fixed }

	first, err := util.IssueToken("subject", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	second, err := util.IssueToken("subject", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if first != second {
		t.Error("IssueToken() should be deterministic for identical input")
	}
}

func TestJWTUtil_ExpiredToken(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.IssueToken("subject", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	_, err = util.ValidateToken(token)
	if err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTUtil_InvalidTokens(t *testing.T) {
	util := NewJWTUtil(testConfig())

	other := testConfig()
	other.SigningKey = "another-secret"
	foreign, err := NewJWTUtil(other).GenerateToken("subject")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"
	wrongIssuer, err := NewJWTUtil(otherIssuer).GenerateToken("subject")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "subject",
		Issuer:  "test-issuer",
	}).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "subject",
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "random string", token: "not.a.valid.token"},
		{name: "malformed jwt", token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid"},
		{name: "wrong signing key", token: foreign},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "missing expiry", token: noExpiry},
		{name: "missing subject", token: noSubject},
		{name: "alg none", token: unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := util.ValidateToken(tt.token)
			if err != ErrInvalidToken {
				t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTUtil_IssueTokenRequiresKeyAndSubject(t *testing.T) {
	if _, err := NewJWTUtil(JWTConfig{Expiration: time.Minute}).GenerateToken("subject"); err == nil {
		t.Error("GenerateToken() should fail without a signing key")
	}
	if _, err := NewJWTUtil(testConfig()).GenerateToken(""); err == nil {
		t.Error("GenerateToken() should fail without a subject")
	}
}
