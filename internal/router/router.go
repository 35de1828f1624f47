// Package router wires handlers, auth and the Redis-backed middleware
// into the Echo route table.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Cfg    config.Config
	Redis  *redis.Client
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	Public *handler.PublicEventHandler
	Promo  *handler.PromoterEventHandler
	Buyer  *handler.BuyerTicketHandler
}

// Register attaches all routes. Public browse endpoints sit behind the
// response cache; the purchase endpoint sits behind the rate limiter.
// Role checks run after JWT validation.
func Register(e *echo.Echo, d Deps) {
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), d.Redis)
	limitMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Redis)
	authMW := middleware.JWTAuth(d.Cfg.JWTSecret)

	e.GET("/healthz", d.Health.Check)

	v1 := e.Group("/v1")

	// Public surface: no auth required.
	v1.GET("/events", d.Public.List, cacheMW)
	v1.GET("/events/:id", d.Public.Get, cacheMW)
	v1.GET("/tickets/validate/:code", d.Public.ValidateTicket, limitMW)

	// Auth lifecycle.
	auth := v1.Group("/auth")
	auth.POST("/register", d.Auth.Register, limitMW)
	auth.POST("/login", d.Auth.Login, limitMW)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/refresh-access", d.Auth.RefreshAccess)
	auth.POST("/logout", d.Auth.Logout, authMW)

	v1.GET("/me", d.Auth.Me, authMW)

	// Buyer surface.
	buyer := v1.Group("", authMW, middleware.RequireRole(model.RoleBuyer))
	buyer.POST("/events/:id/purchase", d.Buyer.Purchase, limitMW)
	buyer.GET("/my-tickets", d.Buyer.MyTickets)
	buyer.GET("/tickets/:id", d.Buyer.GetTicket)

	// Promoter surface.
	promo := v1.Group("", authMW, middleware.RequireRole(model.RolePromoter))
	promo.POST("/events", d.Promo.Create)
	promo.GET("/my-events", d.Promo.ListMine)
	promo.PUT("/events/:id", d.Promo.Update)
	promo.DELETE("/events/:id", d.Promo.Delete)
}
