package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	commonmw "github.com/yashrajoria/distributor-backend/services/common/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/controllers"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/middleware"
)

// Controllers groups every handler the service exposes.
type Controllers struct {
	Auth      *controllers.AuthController
	Products  *controllers.ProductController
	Inventory *controllers.InventoryController
	Shipments *controllers.ShipmentController
	Billing   *controllers.BillingController
	Dealers   *controllers.DealerController
	Presence  *controllers.PresenceController
}

// RegisterRoutes registers all distributor service routes. limiter guards
// the unauthenticated endpoints.
func RegisterRoutes(r *gin.Engine, ctrl Controllers, tokens middleware.TokenParser, limiter *commonmw.RateLimiter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// Public endpoints
	public := r.Group("/")
	public.Use(commonmw.RateLimitMiddleware(limiter))
	{
		public.POST("/login", ctrl.Auth.Login)
		public.POST("/dealers", ctrl.Dealers.Register)
	}

	authed := r.Group("/")
	authed.Use(middleware.RequireAuth(tokens))
	{
		authed.POST("/logout", ctrl.Auth.Logout)

		authed.GET("/products", ctrl.Products.List)
		authed.GET("/inventory", ctrl.Inventory.GetCentralStock)
		authed.GET("/dealer-inventory", ctrl.Inventory.GetDealerInventory)

		authed.POST("/shipments", ctrl.Shipments.Submit)
		authed.GET("/shipments", ctrl.Shipments.List)
		authed.GET("/shipments/stream", ctrl.Shipments.Stream)

		authed.GET("/user-status", ctrl.Presence.Statuses)
		authed.POST("/user-status", ctrl.Presence.Touch)
	}

	admin := r.Group("/")
	admin.Use(middleware.RequireAuth(tokens), middleware.RequireAdmin())
	{
		admin.POST("/products", ctrl.Products.Upsert)
		admin.POST("/inventory", ctrl.Inventory.AdjustCentralStock)
		admin.POST("/dealer-inventory", ctrl.Inventory.AdjustDealerStock)
		admin.GET("/billing", ctrl.Billing.GetBilling)
		admin.GET("/dealers", ctrl.Dealers.List)
		admin.PUT("/dealers", ctrl.Dealers.Transition)
	}
}
