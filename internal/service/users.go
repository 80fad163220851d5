package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ianibaeva/explore-with-me/internal/model"
	"github.com/ianibaeva/explore-with-me/internal/repository"
)

// UserService is the minimal user registry events and requests refer to.
type UserService struct {
	store repository.Store
	options
}

// NewUserService constructs a UserService with its dependencies.
func NewUserService(store repository.Store, opts ...Option) *UserService {
	return &UserService{store: store, options: newOptions(opts)}
}

// CreateUser registers a user. Emails are unique, compared case-insensitively.
func (s *UserService) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user := &model.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		CreatedOn: s.clock(),
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.ErrEmailTaken
		}
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// GetUser returns a single user.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, model.ErrUserNotFound, "get user")
	}
	return user, nil
}

// ListUsers returns a page of users, optionally restricted to ids.
func (s *UserService) ListUsers(ctx context.Context, ids []string, from, size int) ([]model.User, error) {
	offset, limit := page(from, size)
	return s.store.ListUsers(ctx, ids, offset, limit)
}
