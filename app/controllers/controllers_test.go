package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jushkitchen/jush/app/controllers"
	"github.com/jushkitchen/jush/app/repositories"
	"github.com/jushkitchen/jush/app/routes"
	"github.com/jushkitchen/jush/app/services"
	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/router"
	"github.com/jushkitchen/jush/pkg/testkit"
)

const (
	bootstrapEmail    = "admin@jush.com"
	bootstrapPassword = "admin123"
)

// newAPI builds the route table over in-memory stores with the bootstrap
// admin in place.
func newAPI(t *testing.T) (http.Handler, *services.AuthService) {
	t.Helper()

	issuer := auth.NewIssuer("controller-test-secret", time.Hour)
	authSvc := services.NewAuthService(repositories.NewMemoryAdminRepository(), issuer)
	orderSvc := services.NewOrderService(repositories.NewMemoryOrderRepository(), event.NewBus())

	created, err := authSvc.EnsureDefaultAdmin(context.Background(), bootstrapEmail, bootstrapPassword)
	require.NoError(t, err)
	require.True(t, created)

	r := router.New()
	routes.RegisterAPI(r, routes.Handlers{
		Orders: controllers.NewOrderController(orderSvc),
		Auth:   controllers.NewAuthController(authSvc),
		Tokens: issuer,
	})
	return r.Handler(), authSvc
}

func adminToken(t *testing.T, svc *services.AuthService) string {
	t.Helper()
	token, _, err := svc.Login(context.Background(), bootstrapEmail, bootstrapPassword)
	require.NoError(t, err)
	return token
}

func TestOrderScenarios(t *testing.T) {
	h, svc := newAPI(t)
	staff, err := svc.CreateAdmin(context.Background(), mustAdminID(t, svc), services.NewAdmin{
		Email: "kitchen@jush.com", Password: "kitchen1", Name: "Kitchen", Role: "staff",
	})
	require.NoError(t, err)
	staffToken, _, err := svc.Login(context.Background(), staff.Email, "kitchen1")
	require.NoError(t, err)

	testkit.NewRunner(h).
		WithToken("admin", adminToken(t, svc)).
		WithToken("staff", staffToken).
		RunFile(t, "testdata/orders.json")
}

func TestAdminScenarios(t *testing.T) {
	h, _ := newAPI(t)
	testkit.NewRunner(h).RunFile(t, "testdata/admin.json")
}

func TestAnalyticsRejectsBadRange(t *testing.T) {
	h, svc := newAPI(t)
	r := testkit.NewRunner(h).WithToken("admin", adminToken(t, svc))

	rec := r.Do(http.MethodGet, "/api/orders/stats/analytics?from=2026-03-10&to=2026-03-01", nil, "admin")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"from must be before to"}`, rec.Body.String())

	rec = r.Do(http.MethodGet, "/api/orders/stats/analytics?from=yesterday", nil, "admin")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid from date")
}

func TestLatestIsNullWithoutOrders(t *testing.T) {
	h, svc := newAPI(t)
	rec := testkit.NewRunner(h).WithToken("admin", adminToken(t, svc)).
		Do(http.MethodGet, "/api/orders/latest", nil, "admin")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"latestOrderTime":null}`, rec.Body.String())
}

func TestListCapsOversizedPaging(t *testing.T) {
	h, svc := newAPI(t)
	rec := testkit.NewRunner(h).WithToken("admin", adminToken(t, svc)).
		Do(http.MethodGet, "/api/orders?page=3&limit=4611686018427387904", nil, "admin")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	limit, ok := testkit.Lookup(body, "pagination.limit")
	require.True(t, ok)
	assert.EqualValues(t, 100, limit)
	orders, _ := testkit.Lookup(body, "orders")
	assert.Empty(t, orders)
}

func TestTamperedTokenIsRejected(t *testing.T) {
	h, svc := newAPI(t)
	valid := adminToken(t, svc)
	forged, err := auth.NewIssuer("another-secret", time.Hour).Issue(mustAdminID(t, svc), bootstrapEmail, "admin")
	require.NoError(t, err)

	for _, token := range []string{valid + "x", forged} {
		rec := testkit.NewRunner(h).WithToken("bad", token).Do(http.MethodGet, "/api/orders", nil, "bad")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"Invalid token"}`, rec.Body.String())
	}
}

func mustAdminID(t *testing.T, svc *services.AuthService) string {
	t.Helper()
	_, admin, err := svc.Login(context.Background(), bootstrapEmail, bootstrapPassword)
	require.NoError(t, err)
	return admin.ID.Hex()
}
