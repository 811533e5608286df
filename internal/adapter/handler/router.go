package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rcastell/shop-backend/internal/auth"
)

// NewRouter wires the route tree: public auth endpoints, client endpoints
// behind authentication, and admin endpoints behind the admin gate.
func NewRouter(authH *AuthHandler, clientH *ClientHandler, adminH *AdminHandler, tokens *auth.TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
	}

	client := r.Group("/client", Authenticate(tokens))
	{
		client.POST("/purchase", clientH.Purchase)
		client.GET("/invoice/:id", clientH.GetInvoice)
		client.GET("/history", clientH.GetHistory)
	}

	admin := r.Group("/admin", Authenticate(tokens))
	{
		// product reads need a token but not the admin role
		admin.GET("/products", adminH.ListProducts)
		admin.GET("/products/:id", adminH.GetProduct)

		restricted := admin.Group("", RequireAdmin())
		{
			restricted.POST("/products", adminH.CreateProduct)
			restricted.PUT("/products/:id", adminH.UpdateProduct)
			restricted.DELETE("/products/:id", adminH.DeleteProduct)
			restricted.GET("/purchases", adminH.ListPurchases)
		}
	}

	return r
}
