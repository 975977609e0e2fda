package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token cannot be decoded or verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey string
	Expiration time.Duration
	Issuer     string
}

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
		now:    time.Now,
	}
}

// Expiration returns the lifetime of tokens produced by GenerateToken
func (j *JWTUtil) Expiration() time.Duration {
	return j.config.Expiration
}

// GenerateToken creates a token for the subject with the configured lifetime
func (j *JWTUtil) GenerateToken(subject string) (string, error) {
	return j.IssueToken(subject, j.config.Expiration)
}

// IssueToken creates a signed token for the subject valid for ttl
func (j *JWTUtil) IssueToken(subject string, ttl time.Duration) (string, error) {
	if j.config.SigningKey == "" {
		return "", errors.New("JWT signing key not configured")
	}
	if subject == "" {
		return "", errors.New("JWT subject is required")
	}

	now := j.now()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token. Any failure is reported as
// ErrExpiredToken or ErrInvalidToken.
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(j.config.SigningKey), nil
		},
		options...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
