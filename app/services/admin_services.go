package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/app/repositories"
	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/validate"
)

const defaultAdminName = "JUSH Admin"

// NewAdmin is the user-management create payload.
type NewAdmin struct {
	Email    string      `json:"email"    validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	Name     string      `json:"name"     validate:"required"`
	Role     models.Role `json:"role"     validate:"omitempty,in=admin|manager|staff"`
}

// authorize reloads the acting admin so a role change takes effect before
// the caller's token expires.
func (s *AuthService) authorize(ctx context.Context, actorID string) (*models.Admin, error) {
	actor, err := s.admins.FindByID(ctx, actorID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin || !actor.IsActive {
		return nil, ErrForbidden
	}
	return actor, nil
}

func (s *AuthService) ListAdmins(ctx context.Context, actorID string) ([]models.Admin, error) {
	if _, err := s.authorize(ctx, actorID); err != nil {
		return nil, err
	}
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

func (s *AuthService) CreateAdmin(ctx context.Context, actorID string, in NewAdmin) (*models.Admin, error) {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Email) == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, ErrMissingFields
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if err := validationError(validate.Struct(in)); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleStaff
	}

	a, err := s.newAdmin(in.Email, in.Password, strings.TrimSpace(in.Name), in.Role, nil)
	if err != nil {
		return nil, err
	}
	if err := s.admins.Create(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}

	logger.WithCtx(ctx).Info("admin created", "admin", a.Email, "role", a.Role, "by", actor.Email)
	return a, nil
}

// UpdateAdmin applies the non-nil fields of u to admin id.
func (s *AuthService) UpdateAdmin(ctx context.Context, actorID, id string, u models.AdminUpdate) (*models.Admin, error) {
	if _, err := s.authorize(ctx, actorID); err != nil {
		return nil, err
	}
	if u.Role != nil && *u.Role != "" && !u.Role.Valid() {
		return nil, &ValidationError{Fields: map[string]string{
			"role": "role must be one of: admin, manager, staff",
		}}
	}

	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		a.Name = strings.TrimSpace(*u.Name)
	}
	if u.Role != nil && *u.Role != "" {
		a.Role = *u.Role
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}

	if err := s.admins.Update(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("update admin: %w", err)
	}
	return a, nil
}

func (s *AuthService) DeleteAdmin(ctx context.Context, actorID, id string) error {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return err
	}
	if id == actor.ID.Hex() {
		return ErrSelfDelete
	}

	if err := s.admins.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("delete admin: %w", err)
	}

	logger.WithCtx(ctx).Info("admin deleted", "admin_id", id, "by", actor.Email)
	return nil
}

// EnsureDefaultAdmin creates the bootstrap admin when the collection is
// empty. It reports whether an admin was created.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, email, password string) (bool, error) {
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		logger.Info("admin users already exist, skipping default admin creation")
		return false, nil
	}

	a, err := s.newAdmin(email, password, defaultAdminName, models.RoleAdmin, models.AllPermissions)
	if err != nil {
		return false, err
	}
	if err := s.admins.Create(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create default admin: %w", err)
	}

	logger.Warn("default admin created, change its password after first login", "email", a.Email)
	return true, nil
}

func (s *AuthService) newAdmin(email, password, name string, role models.Role, perms []models.Permission) (*models.Admin, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	return &models.Admin{
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Password:    hash,
		Name:        name,
		Role:        role,
		IsActive:    true,
		Permissions: perms,
	}, nil
}
