package routes

import (
	"context"
	"net/http"
	"time"

	adminapi "artmarket/internal/api/admin"
	collectorsapi "artmarket/internal/api/collectors"
	stripewebhooks "artmarket/internal/api/stripewebhook"
	usersapi "artmarket/internal/api/users"
	worksapi "artmarket/internal/api/works"
	"artmarket/internal/app/http/middleware"
	"artmarket/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// Deps carries the handlers built in main.
type Deps struct {
	JWTSecret string

	Works      *worksapi.Handler
	Users      *usersapi.Handler
	Collectors *collectorsapi.Handler
	Admin      *adminapi.Handler
	Webhook    *stripewebhooks.Handler

	Metrics http.Handler
	// Ping reports database reachability for /health. Nil skips the check.
	Ping func(ctx context.Context) error
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// raw body is needed for the signature check, so no sanitizer here
	r.POST("/webhook", d.Webhook.StripeWebhook)
	r.GET("/health", health(d.Ping))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.GET("/artists/:slug/available", d.Collectors.AvailableWork)
	public.GET("/artists/:slug/catalogues/:catalogue", d.Collectors.PublicCatalogue)
	public.GET("/public/artworks/:id", d.Collectors.PublicArtwork)
	public.POST("/public/artworks/:id/inquiries", middleware.OptionalAuth(d.JWTSecret), d.Collectors.CreateInquiry)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", d.Users.GetCurrentUser)
	auth.GET("/favorites", d.Collectors.ListFavorites)
	auth.PUT("/favorites/:artworkId", d.Collectors.AddFavorite)
	auth.DELETE("/favorites/:artworkId", d.Collectors.RemoveFavorite)
	auth.POST("/artworks/:id/checkout", d.Collectors.Checkout)

	// Artists
	artist := auth.Group("/")
	artist.Use(middleware.RequireRole(users.RoleArtist, users.RoleAdmin))
	artist.PUT("/me/profile", d.Users.UpdateProfile)

	artist.GET("/artworks", d.Works.ListArtworks)
	artist.POST("/artworks", d.Works.CreateArtwork)
	artist.GET("/artworks/:id", d.Works.GetArtwork)
	artist.PUT("/artworks/:id", d.Works.UpdateArtwork)
	artist.DELETE("/artworks/:id", d.Works.DeleteArtwork)
	artist.PUT("/artworks/:id/editions", d.Works.SetEditionSale)
	artist.GET("/sales", d.Works.ListSales)

	artist.GET("/catalogues", d.Works.ListCatalogues)
	artist.POST("/catalogues", d.Works.CreateCatalogue)
	artist.PUT("/catalogues/:id", d.Works.UpdateCatalogue)
	artist.DELETE("/catalogues/:id", d.Works.DeleteCatalogue)
	artist.GET("/catalogues/:id/artworks", d.Works.CatalogueArtworks)
	artist.PUT("/catalogues/:id/order", d.Works.ReorderCatalogue)
	artist.PUT("/catalogues/:id/artworks/:artworkId", d.Works.AddToCatalogue)
	artist.DELETE("/catalogues/:id/artworks/:artworkId", d.Works.RemoveFromCatalogue)

	artist.GET("/inquiries", d.Collectors.ListInquiries)
	artist.PUT("/inquiries/:id", d.Collectors.UpdateInquiry)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.RequireRole(users.RoleAdmin))
	admin.GET("/dashboard", d.Admin.AdminDashboard)
	admin.GET("/regeneration/tasks", d.Admin.ListTasks)
	admin.POST("/regeneration/tasks/:id/requeue", d.Admin.RequeueTask)
	admin.POST("/reconcile", d.Admin.Reconcile)
}

func health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
