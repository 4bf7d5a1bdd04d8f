package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/app/repositories"
	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/logger"
)

var ErrCredentialsRequired = errors.New("email and password are required")

// AdminStore is implemented by repositories.AdminRepository.
type AdminStore interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, a *models.Admin) error
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id string) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
	Update(ctx context.Context, a *models.Admin) error
	Delete(ctx context.Context, id string) error
}

// TokenIssuer is satisfied by *auth.Issuer.
type TokenIssuer interface {
	Issue(adminID, email, role string) (string, error)
}

// AuthService authenticates dashboard admins and manages their accounts.
type AuthService struct {
	admins AdminStore
	tokens TokenIssuer
	now    func() time.Time
}

func NewAuthService(admins AdminStore, tokens TokenIssuer) *AuthService {
	return &AuthService{admins: admins, tokens: tokens, now: time.Now}
}

// Login checks the credentials, stamps lastLogin and returns a bearer token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.Admin, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, ErrCredentialsRequired
	}

	a, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	if !auth.CheckPassword(a.Password, password) {
		logger.WithCtx(ctx).Warn("failed login", "email", a.Email)
		return "", nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return "", nil, ErrAccountDisabled
	}

	now := s.now()
	a.LastLogin = &now
	if err := s.admins.Update(ctx, a); err != nil {
		return "", nil, fmt.Errorf("login: record last login: %w", err)
	}

	token, err := s.tokens.Issue(a.ID.Hex(), a.Email, string(a.Role))
	if err != nil {
		return "", nil, fmt.Errorf("login: issue token: %w", err)
	}

	logger.WithCtx(ctx).Info("admin logged in", "admin", a.Email)
	return token, a, nil
}

// Verify resolves the admin behind validated token claims. Deleted or
// deactivated admins fail with ErrInvalidCredentials.
func (s *AuthService) Verify(ctx context.Context, adminID string) (*models.Admin, error) {
	a, err := s.admins.FindByID(ctx, adminID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if !a.IsActive {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

func (s *AuthService) Profile(ctx context.Context, adminID string) (*models.Admin, error) {
	return s.find(ctx, adminID)
}

// UpdateProfile changes the caller's display name. An empty name is a no-op.
func (s *AuthService) UpdateProfile(ctx context.Context, adminID, name string) (*models.Admin, error) {
	a, err := s.find(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		a.Name = name
	}
	if err := s.admins.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return a, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, adminID, current, next string) error {
	if current == "" || next == "" {
		return &ValidationError{Fields: map[string]string{
			"currentPassword": "Current password and new password are required",
		}}
	}
	if len(next) < auth.MinPasswordLength {
		return ErrPasswordTooShort
	}

	a, err := s.find(ctx, adminID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(a.Password, current) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	a.Password = hash
	if err := s.admins.Update(ctx, a); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	logger.WithCtx(ctx).Info("admin changed password", "admin", a.Email)
	return nil
}

func (s *AuthService) find(ctx context.Context, id string) (*models.Admin, error) {
	a, err := s.admins.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
