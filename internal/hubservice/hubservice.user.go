package hubservice

import (
	"context"
	"strings"

	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/models"
)

// UserService handles accounts and device registration
type UserService interface {
	CreateUser(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password, pushToken string) (*models.User, error)
}

// CreateUser registers an account with a hashed password
func (s *HubService) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.NewValidationError("a valid email is required", nil)
	}
	if password == "" {
		return nil, errors.NewValidationError("password is required", nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	user := &models.User{
		ID:           nuts.NID("usr", 12),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.Now(),
	}
	if err := s.Store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	nuts.L.Infof("[UserService] Created user %s (%s)", user.ID, user.Email)
	return user, nil
}

// Login verifies credentials and registers the device's push token. A bad
// email and a bad password fail the same way and write nothing.
func (s *HubService) Login(ctx context.Context, email, password, pushToken string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" || pushToken == "" {
		return nil, errors.NewValidationError("email, password and fcmToken are required", nil)
	}

	user, err := s.Store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewAuthError("invalid email or password", nil)
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, errors.NewAuthError("invalid email or password", nil)
	}

	now := s.Now()
	if err := s.Store.Users().UpdateLogin(ctx, user.ID, pushToken, now); err != nil {
		return nil, err
	}
	user.PushToken = &pushToken
	user.LastLogin = &now

	nuts.L.Infof("[UserService] User %s logged in", user.ID)
	return user, nil
}
