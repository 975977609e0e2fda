package service

import (
	"context"
	"errors"

	"catalog-service/internal/model"
	"catalog-service/pkg/jwtutil"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"

	"go.uber.org/zap"
)

// TokenType is the token_type reported on login
const TokenType = "bearer"

// AuthStatus is the outcome of resolving a bearer token.
type AuthStatus int

// Resolution outcomes
const (
	AuthOK AuthStatus = iota
	AuthInvalid
	AuthExpired
	AuthUnknownSubject
)

func (s AuthStatus) String() string {
	switch s {
	case AuthOK:
		return "ok"
	case AuthInvalid:
		return "invalid_token"
	case AuthExpired:
		return "expired_token"
	case AuthUnknownSubject:
		return "unknown_subject"
	default:
		return "unknown"
	}
}

// AuthResult carries the resolved user when Status is AuthOK.
type AuthResult struct {
	Status AuthStatus
	User   *model.User
}

// AuthService handles password login and bearer token resolution.
type AuthService struct {
	users   UserRepository
	hasher  PasswordHasher
	tokens  TokenManager
	metrics *prometheus.Metrics
}

// NewAuthService creates an AuthService
func NewAuthService(users UserRepository, hasher PasswordHasher, tokens TokenManager, metrics *prometheus.Metrics) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, metrics: metrics}
}

// Login checks the credentials and issues an access token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	log := logger.FromContext(ctx)

	creds, err := s.users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		s.metrics.RecordLogin("unknown_email")
		log.Info("Login failed", zap.String("reason", "unknown_email"))
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, creds.PasswordHash) {
		s.metrics.RecordLogin("wrong_password")
		log.Info("Login failed", zap.String("reason", "wrong_password"), zap.String("user_id", creds.ID.Hex()))
		return nil, ErrInvalidCredentials
	}
	if creds.Status == model.StatusInactive {
		s.metrics.RecordLogin("disabled")
		log.Info("Login rejected for disabled account", zap.String("user_id", creds.ID.Hex()))
		return nil, ErrAccountDisabled
	}

	token, err := s.tokens.GenerateToken(creds.ID.Hex())
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin("success")
	log.Info("User logged in", zap.String("user_id", creds.ID.Hex()))
	return &model.LoginResponse{
		AccessToken: token,
		TokenType:   TokenType,
		User:        creds.User,
	}, nil
}

// Resolve maps a bearer token to a live user. Expected failures come back as
// a non-OK status; the error is reserved for infrastructure problems.
func (s *AuthService) Resolve(ctx context.Context, token string) (AuthResult, error) {
	claims, err := s.tokens.ValidateToken(token)
	if errors.Is(err, jwtutil.ErrExpiredToken) {
		return AuthResult{Status: AuthExpired}, nil
	}
	if err != nil {
		return AuthResult{Status: AuthInvalid}, nil
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return AuthResult{}, err
	}
	if user == nil {
		return AuthResult{Status: AuthUnknownSubject}, nil
	}
	return AuthResult{Status: AuthOK, User: user}, nil
}
