package http

import "github.com/gin-gonic/gin"

// Register attaches chat and project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup, chatLimiter gin.HandlerFunc) {
	chat := rg.Group("/chat")
	if chatLimiter != nil {
		chat.Use(chatLimiter)
	}
	chat.POST("/stream", h.chatStream)
	chat.POST("/example", h.generateExample)
	chat.POST("/artifact", h.generateArtifact)

	rg.GET("/projects/:project_id", h.getProject)
	rg.GET("/projects/:project_id/steps", h.getProjectSteps)
}
