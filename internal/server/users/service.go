package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/auth"
	"github.com/tranqh/studymate/internal/server/models"
)

// Service is the user directory. It owns user records exclusively and
// performs the password hashing for registration; activation checks are
// left to callers.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates an active user record with fresh timestamps. The password
// is hashed before the repository is touched, so the store lock is never held
// during the bcrypt work. Duplicate usernames or emails yield
// common.ErrorAlreadyExists.
func (s *Service) Register(ctx context.Context, userName, email, password, fullName string) (*models.User, error) {

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		UserName:     userName,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Authenticate returns the record for userName when the password verifies.
// "No such user" and "wrong password" are deliberately indistinguishable:
// both yield common.ErrorUnauthorized. The active flag is NOT checked here;
// that is the caller's decision.
func (s *Service) Authenticate(ctx context.Context, userName, password string) (*models.User, error) {

	user, err := s.repo.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}

// GetByUserName looks up a record by exact username.
func (s *Service) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	return s.repo.GetByUserName(ctx, userName)
}

// GetByID looks up a record by its stable identifier.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all user records.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.List(ctx)
}

// EnsureExists registers the user unless the username is already present and
// reports whether a record was created. Used for the default-admin bootstrap;
// losing a concurrent registration race is not an error.
func (s *Service) EnsureExists(ctx context.Context, userName, email, password, fullName string) (bool, error) {

	_, err := s.repo.GetByUserName(ctx, userName)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	if _, err := s.Register(ctx, userName, email, password, fullName); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// SetActive flips the administrative kill-switch on a user record.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()

	return s.repo.Update(ctx, user)
}
