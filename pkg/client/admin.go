package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/jushkitchen/jush/app/models"
)

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Admin, error) {
	var out struct {
		Token string       `json:"token"`
		Admin models.Admin `json:"admin"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.setToken(out.Token)
	return &out.Admin, nil
}

// Logout forgets the token and closes the socket. The server keeps no session.
func (c *Client) Logout() {
	c.DisconnectSocket()
	c.setToken("")
}

// VerifyToken checks the held token against the server. A rejected token is
// cleared.
func (c *Client) VerifyToken(ctx context.Context) (*models.Admin, error) {
	if !c.Authenticated() {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "No token"}
	}
	var out struct {
		Admin models.Admin `json:"admin"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out.Admin, nil
}

func (c *Client) GetProfile(ctx context.Context) (*models.Admin, error) {
	var out struct {
		Admin models.Admin `json:"admin"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out.Admin, nil
}

func (c *Client) UpdateProfile(ctx context.Context, name string) (*models.Admin, error) {
	var out struct {
		Admin models.Admin `json:"admin"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/admin/profile", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out.Admin, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.do(ctx, http.MethodPatch, "/api/admin/change-password", body, nil)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
