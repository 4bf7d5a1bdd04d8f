package services

import (
	"errors"

	"github.com/jushkitchen/jush/pkg/validate"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrStatusRequired  = errors.New("status is required")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidDate     = errors.New("invalid date")
	ErrAdminNotFound   = errors.New("admin not found")
	ErrAdminExists     = errors.New("admin with this email already exists")
	ErrForbidden       = errors.New("access denied")
	ErrSelfDelete      = errors.New("cannot delete your own account")
	ErrAccountDisabled = errors.New("account is deactivated")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPasswordTooShort   = errors.New("password too short")
)

// ValidationError carries per-field messages from request validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return validate.First(e.Fields)
}

func validationError(fields map[string]string) error {
	if !validate.HasErrors(fields) {
		return nil
	}
	return &ValidationError{Fields: fields}
}
