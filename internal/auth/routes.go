package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers auth routes. Login is public; /me sits behind
// the bearer gate.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handler.Login)
		authGroup.GET("/me", handler.RequireAuth(), handler.Me)
	}
}
