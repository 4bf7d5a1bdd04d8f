package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jushkitchen/jush/pkg/auth"
)

func TestHasRole(t *testing.T) {
	h := HasRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"no claims", nil, http.StatusForbidden},
		{"staff", &auth.Claims{AdminID: "1", Role: "staff"}, http.StatusForbidden},
		{"admin", &auth.Claims{AdminID: "1", Role: "admin"}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tc.claims != nil {
				req = req.WithContext(auth.WithClaims(req.Context(), tc.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
