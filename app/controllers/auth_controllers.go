package controllers

import (
	"errors"
	"net/http"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/app/services"
	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/bind"
	"github.com/jushkitchen/jush/pkg/ctx"
	"github.com/jushkitchen/jush/pkg/logger"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(svc *services.AuthService) *AuthController {
	return &AuthController{auth: svc}
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *ctx.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, bind.ErrEmptyBody) {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	token, admin, err := ac.auth.Login(c.Context(), body.Email, body.Password)
	switch {
	case errors.Is(err, services.ErrCredentialsRequired):
		c.Error(http.StatusBadRequest, "Email and password are required")
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid credentials")
		return
	case errors.Is(err, services.ErrAccountDisabled):
		c.Unauthorized("Account is deactivated")
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("login failed", "error", err)
		c.Error(http.StatusInternalServerError, "Login failed")
		return
	}

	c.Success(ctx.H{"token": token, "admin": admin})
}

// Verify handles GET /api/auth/verify behind the auth middleware.
func (ac *AuthController) Verify(c *ctx.Context) {
	claims, ok := auth.FromContext(c.Context())
	if !ok {
		c.Unauthorized("Access denied. No token provided.")
		return
	}

	admin, err := ac.auth.Verify(c.Context(), claims.AdminID)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid token")
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("verify token failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to verify token")
		return
	}
	c.Success(ctx.H{"admin": admin})
}

// Profile handles GET /api/admin/profile.
func (ac *AuthController) Profile(c *ctx.Context) {
	admin, err := ac.auth.Profile(c.Context(), actorID(c))
	if err != nil {
		ac.adminError(c, err, "Failed to fetch profile")
		return
	}
	c.Success(ctx.H{"admin": admin})
}

// UpdateProfile handles PATCH /api/admin/profile.
func (ac *AuthController) UpdateProfile(c *ctx.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, bind.ErrEmptyBody) {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	admin, err := ac.auth.UpdateProfile(c.Context(), actorID(c), body.Name)
	if err != nil {
		ac.adminError(c, err, "Failed to update profile")
		return
	}
	c.Success(ctx.H{"admin": admin})
}

// ChangePassword handles PATCH /api/admin/change-password.
func (ac *AuthController) ChangePassword(c *ctx.Context) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, bind.ErrEmptyBody) {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	err := ac.auth.ChangePassword(c.Context(), actorID(c), body.CurrentPassword, body.NewPassword)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.Error(http.StatusBadRequest, "Current password and new password are required")
		return
	case errors.Is(err, services.ErrPasswordTooShort):
		c.Error(http.StatusBadRequest, "New password must be at least 6 characters long")
		return
	case errors.Is(err, services.ErrWrongPassword):
		c.Error(http.StatusBadRequest, "Current password is incorrect")
		return
	case err != nil:
		ac.adminError(c, err, "Failed to change password")
		return
	}
	c.Success(ctx.H{"message": "Password updated successfully"})
}

// ListUsers handles GET /api/admin/users.
func (ac *AuthController) ListUsers(c *ctx.Context) {
	admins, err := ac.auth.ListAdmins(c.Context(), actorID(c))
	if err != nil {
		ac.adminError(c, err, "Failed to fetch admins")
		return
	}
	c.Success(ctx.H{"admins": admins})
}

// CreateUser handles POST /api/admin/users.
func (ac *AuthController) CreateUser(c *ctx.Context) {
	var in services.NewAdmin
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, bind.ErrEmptyBody) {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	admin, err := ac.auth.CreateAdmin(c.Context(), actorID(c), in)
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrMissingFields):
		c.Error(http.StatusBadRequest, "Email, password, and name are required")
		return
	case errors.Is(err, services.ErrPasswordTooShort):
		c.Error(http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	case errors.Is(err, services.ErrAdminExists):
		c.Error(http.StatusBadRequest, "Admin with this email already exists")
		return
	case errors.As(err, &verr):
		c.ValidationError(verr.Fields)
		return
	case err != nil:
		ac.adminError(c, err, "Failed to create admin")
		return
	}
	c.Created(ctx.H{"admin": admin})
}

// UpdateUser handles PATCH /api/admin/users/{id}.
func (ac *AuthController) UpdateUser(c *ctx.Context) {
	var u models.AdminUpdate
	if err := c.ShouldBindJSON(&u); err != nil && !errors.Is(err, bind.ErrEmptyBody) {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	admin, err := ac.auth.UpdateAdmin(c.Context(), actorID(c), c.Param("id"), u)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.ValidationError(verr.Fields)
		return
	}
	if err != nil {
		ac.adminError(c, err, "Failed to update admin")
		return
	}
	c.Success(ctx.H{"admin": admin})
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (ac *AuthController) DeleteUser(c *ctx.Context) {
	err := ac.auth.DeleteAdmin(c.Context(), actorID(c), c.Param("id"))
	if errors.Is(err, services.ErrSelfDelete) {
		c.Error(http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	if err != nil {
		ac.adminError(c, err, "Failed to delete admin")
		return
	}
	c.Success(ctx.H{"message": "Admin deleted successfully"})
}

// adminError maps the errors shared by the /api/admin handlers.
func (ac *AuthController) adminError(c *ctx.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden("Access denied")
	case errors.Is(err, services.ErrAdminNotFound):
		c.NotFound("Admin not found")
	default:
		logger.WithCtx(c.Context()).Error(fallback, "error", err)
		c.Error(http.StatusInternalServerError, fallback)
	}
}

func actorID(c *ctx.Context) string {
	claims, ok := auth.FromContext(c.Context())
	if !ok {
		return ""
	}
	return claims.AdminID
}
