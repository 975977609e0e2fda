package repository

import (
	"context"
	"errors"

	"catalog-service/internal/model"
	"catalog-service/prometheus"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateEmail is returned when a write violates the unique email index.
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository persists users in the users collection.
type UserRepository struct {
	docs  documents[model.User]
	creds documents[model.UserCredentials]
}

// NewUserRepository creates a repository over coll
func NewUserRepository(coll *mongo.Collection, metrics *prometheus.Metrics) *UserRepository {
	return &UserRepository{
		docs:  newDocuments[model.User](coll, metrics),
		creds: newDocuments[model.UserCredentials](coll, metrics),
	}
}

// Create inserts the user and assigns its ID
func (r *UserRepository) Create(ctx context.Context, user *model.UserCredentials) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	return r.docs.insert(ctx, user)
}

// GetByID returns nil when the user does not exist or id is malformed
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.docs.getByID(ctx, id)
}

// FindByEmail looks a user up by exact email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.docs.findOne(ctx, "find_by_email", bson.M{model.UserFieldEmail: email})
}

// GetCredentialsByEmail is the only read that includes the password hash
func (r *UserRepository) GetCredentialsByEmail(ctx context.Context, email string) (*model.UserCredentials, error) {
	return r.creds.findOne(ctx, "find_credentials", bson.M{model.UserFieldEmail: email})
}

// List returns a page of users and the total count
func (r *UserRepository) List(ctx context.Context, skip, limit int64) ([]model.User, int64, error) {
	return r.docs.list(ctx, skip, limit)
}

// Update applies patch when the stored version matches
func (r *UserRepository) Update(ctx context.Context, id string, version int64, patch model.Patch) (bool, error) {
	return r.docs.update(ctx, id, version, patch)
}

// Delete removes the user, reporting whether it existed
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.docs.delete(ctx, id)
}
