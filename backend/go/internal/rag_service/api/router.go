package api

import "github.com/gin-gonic/gin"

// SetupRouter configures and returns the Gin engine for the chat service.
// Access logging and request timeouts are applied by pkg/http around it.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/chat", h.Chat)
	r.GET("/healthz", h.Health)

	return r
}
