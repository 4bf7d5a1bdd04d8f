// Package rbac gates dashboard routes on the admin role carried in the token.
package rbac

import (
	"net/http"

	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/response"
)

// HasRole allows only admins whose token role is one of roles.
// middleware.Auth must run first.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.FromContext(r.Context())
			if !ok || !allowed[claims.Role] {
				response.Error(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
