package middleware

import (
	"net/http"

	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/response"
)

// TokenValidator is satisfied by *auth.Issuer.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Auth rejects requests without a valid bearer token and stores the admin
// claims on the request context for auth.FromContext.
func Auth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				response.Unauthorized(w, "Access denied. No token provided.")
				return
			}

			claims, err := v.Validate(token)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
