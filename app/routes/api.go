package routes

import (
	"net/http"

	"github.com/jushkitchen/jush/app/controllers"
	"github.com/jushkitchen/jush/pkg/ctx"
	"github.com/jushkitchen/jush/pkg/metrics"
	"github.com/jushkitchen/jush/pkg/middleware"
	"github.com/jushkitchen/jush/pkg/rbac"
	"github.com/jushkitchen/jush/pkg/response"
	"github.com/jushkitchen/jush/pkg/router"
)

// Handlers is everything the route table needs, built by internal/server.
type Handlers struct {
	Orders *controllers.OrderController
	Auth   *controllers.AuthController
	Tokens middleware.TokenValidator
	Socket http.Handler // GET /socket
	Events http.Handler // GET /api/events (SSE)
}

func RegisterAPI(r *router.Router, h Handlers) {
	authed := middleware.Auth(h.Tokens)

	r.Get("/metrics", "metrics", metrics.Handler())
	if h.Socket != nil {
		r.Get("/socket", "realtime.socket", h.Socket.ServeHTTP)
	}

	api := r.Group("/api")
	api.Get("/health", "health", ctx.Wrap(controllers.Health))

	// Storefront checkout is public.
	api.Post("/orders", "orders.store", ctx.Wrap(h.Orders.Create))
	api.Post("/auth/login", "auth.login", ctx.Wrap(h.Auth.Login))

	protected := api.Group("", authed)
	protected.Get("/auth/verify", "auth.verify", ctx.Wrap(h.Auth.Verify))
	if h.Events != nil {
		protected.Get("/events", "realtime.events", h.Events.ServeHTTP)
	}

	orders := protected.Group("/orders")
	orders.Get("/", "orders.index", ctx.Wrap(h.Orders.Index))
	orders.Get("/latest", "orders.latest", ctx.Wrap(h.Orders.Latest))
	orders.Get("/stats/overview", "orders.stats", ctx.Wrap(h.Orders.Stats))
	orders.Get("/stats/analytics", "orders.analytics", ctx.Wrap(h.Orders.Analytics))
	orders.Get("/{id}", "orders.show", ctx.Wrap(h.Orders.Show))
	orders.Patch("/{id}/status", "orders.status", ctx.Wrap(h.Orders.UpdateStatus))
	orders.Delete("/{id}", "orders.destroy", ctx.Wrap(h.Orders.Destroy))

	admin := protected.Group("/admin")
	admin.Get("/profile", "admin.profile", ctx.Wrap(h.Auth.Profile))
	admin.Patch("/profile", "admin.profile.update", ctx.Wrap(h.Auth.UpdateProfile))
	admin.Patch("/change-password", "admin.password", ctx.Wrap(h.Auth.ChangePassword))

	users := admin.Group("/users", rbac.HasRole("admin"))
	users.Get("/", "admin.users.index", ctx.Wrap(h.Auth.ListUsers))
	users.Post("/", "admin.users.store", ctx.Wrap(h.Auth.CreateUser))
	users.Patch("/{id}", "admin.users.update", ctx.Wrap(h.Auth.UpdateUser))
	users.Delete("/{id}", "admin.users.destroy", ctx.Wrap(h.Auth.DeleteUser))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
}
