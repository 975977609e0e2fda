// Package service implements the catalog use cases on top of the
// repositories, the upload manager and the token utilities.
package service

import (
	"context"
	"errors"
	"time"

	"catalog-service/internal/model"
	"catalog-service/pkg/jwtutil"
)

var (
	// ErrNotFound is returned for unknown or malformed identifiers.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when another user already has the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrAccountDisabled is returned when an inactive user logs in.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrConcurrentUpdate is returned when the entity changed between read and write.
	ErrConcurrentUpdate = errors.New("entity was modified concurrently")
)

// Upload subfolders
const (
	UserUploads    = "users"
	ProductUploads = "products"
)

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, user *model.UserCredentials) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*model.UserCredentials, error)
	List(ctx context.Context, skip, limit int64) ([]model.User, int64, error)
	Update(ctx context.Context, id string, version int64, patch model.Patch) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ProductRepository persists products.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, skip, limit int64) ([]model.Product, int64, error)
	Update(ctx context.Context, id string, version int64, patch model.Patch) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// FileStore saves uploads and returns their reference.
type FileStore interface {
	Save(ctx context.Context, subfolder, filename string, data []byte) (string, error)
}

// FileRemover deletes files in the background, best effort.
type FileRemover interface {
	Remove(ctx context.Context, ref string)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenManager issues and validates bearer tokens.
type TokenManager interface {
	GenerateToken(subject string) (string, error)
	ValidateToken(token string) (*jwtutil.UserClaims, error)
}

// DisplayInfoGenerator produces product display metadata.
type DisplayInfoGenerator interface {
	Generate() model.DisplayInfo
}

// timestamps are stored with millisecond precision
func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Millisecond)
}

func apply[T any](p *model.Patch, field string, o model.Optional[T]) {
	if o.IsNull() {
		p.UnsetField(field)
		return
	}
	if v, ok := o.Get(); ok {
		p.SetField(field, v)
	}
}

// staleImage returns the stored reference that an accepted image change
// leaves unreferenced, or "".
func staleImage(current string, change model.Optional[string]) string {
	if current == "" {
		return ""
	}
	if change.IsNull() {
		return current
	}
	if v, ok := change.Get(); ok && v != "" && v != current {
		return current
	}
	return ""
}
