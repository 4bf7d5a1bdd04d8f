package controllers

import (
	"time"

	"github.com/jushkitchen/jush/pkg/ctx"
)

// Health handles GET /api/health.
func Health(c *ctx.Context) {
	c.Success(ctx.H{
		"status":    "OK",
		"message":   "JUSH API is running",
		"timestamp": time.Now().UTC(),
	})
}
