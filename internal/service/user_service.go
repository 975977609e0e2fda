package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/model"
	"catalog-service/internal/repository"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"

	"go.uber.org/zap"
)

// UserService manages user accounts.
type UserService struct {
	repo    UserRepository
	hasher  PasswordHasher
	files   FileStore
	cleaner FileRemover
	metrics *prometheus.Metrics
	now     func() time.Time
}

// NewUserService creates a UserService
func NewUserService(repo UserRepository, hasher PasswordHasher, files FileStore, cleaner FileRemover, metrics *prometheus.Metrics) *UserService {
	return &UserService{
		repo:    repo,
		hasher:  hasher,
		files:   files,
		cleaner: cleaner,
		metrics: metrics,
		now:     time.Now,
	}
}

// Create registers a user. The optional upload becomes the profile image.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest, upload *model.Upload) (*model.User, error) {
	log := logger.FromContext(ctx)

	existing, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	status := req.Status
	if status == "" {
		status = model.StatusActive
	}
	now := stamp(s.now)
	user := &model.UserCredentials{
		User: model.User{
			Name:      req.Name,
			Email:     req.Email,
			Phone:     req.Phone,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}

	if upload != nil {
		ref, err := s.files.Save(ctx, UserUploads, upload.Filename, upload.Data)
		if err != nil {
			return nil, err
		}
		user.ProfileImg = ref
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.cleaner.Remove(ctx, user.ProfileImg)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.metrics.RecordEntityOperation("user", "create")
	log.Info("User created", zap.String("user_id", user.ID.Hex()))
	return &user.User, nil
}

// Get returns the user or ErrNotFound
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// List returns a page of users in creation order
func (s *UserService) List(ctx context.Context, skip, limit int64) (*model.ListResponse[model.User], error) {
	items, total, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	return &model.ListResponse[model.User]{Items: items, Total: total}, nil
}

// Update merges upd into the stored user and persists the result. An upload
// replaces the profile image. A request that changes nothing returns the
// stored user untouched.
func (s *UserService) Update(ctx context.Context, id string, upd model.UserUpdate, upload *model.Upload) (*model.User, error) {
	log := logger.FromContext(ctx).With(zap.String("user_id", id))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	var newRef string
	if upload != nil {
		newRef, err = s.files.Save(ctx, UserUploads, upload.Filename, upload.Data)
		if err != nil {
			return nil, err
		}
		upd.ProfileImg = model.Some(newRef)
	}
	// drops the new upload when the write does not go through
	fail := func(err error) (*model.User, error) {
		s.cleaner.Remove(ctx, newRef)
		return nil, err
	}

	if email, ok := upd.Email.Get(); ok && email != existing.Email {
		other, err := s.repo.FindByEmail(ctx, email)
		if err != nil {
			return fail(err)
		}
		if other != nil && other.ID != existing.ID {
			return fail(ErrEmailTaken)
		}
	}

	var patch model.Patch
	apply(&patch, model.UserFieldName, upd.Name)
	apply(&patch, model.UserFieldEmail, upd.Email)
	apply(&patch, model.UserFieldPhone, upd.Phone)
	apply(&patch, model.UserFieldProfileImg, upd.ProfileImg)
	apply(&patch, model.UserFieldStatus, upd.Status)

	if patch.Empty() {
		log.Debug("User update changes nothing")
		return existing, nil
	}
	patch.SetField(model.FieldUpdatedAt, stamp(s.now))

	ok, err := s.repo.Update(ctx, id, existing.Version, patch)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return fail(ErrEmailTaken)
		}
		return fail(err)
	}
	if !ok {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return fail(err)
		}
		if current == nil {
			return fail(ErrNotFound)
		}
		log.Warn("User changed during update")
		return fail(ErrConcurrentUpdate)
	}

	s.cleaner.Remove(ctx, staleImage(existing.ProfileImg, upd.ProfileImg))
	s.metrics.RecordEntityOperation("user", "update")

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	log.Info("User updated")
	return updated, nil
}

// Delete removes the user and its profile image
func (s *UserService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.cleaner.Remove(ctx, existing.ProfileImg)
	s.metrics.RecordEntityOperation("user", "delete")
	logger.FromContext(ctx).Info("User deleted", zap.String("user_id", id))
	return nil
}
