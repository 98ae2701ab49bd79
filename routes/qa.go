package routes

import (
	"context"
	"net/http"

	"docqa-backend/internal/logger"
	"docqa-backend/middleware"
	"docqa-backend/models"
	"docqa-backend/utils"

	"github.com/gin-gonic/gin"
)

// QuestionAnswerer answers one question about one document.
type QuestionAnswerer interface {
	Ask(ctx context.Context, userID string, req models.AskRequest) (*models.AskResponse, error)
}

// SetupQARoutes registers the question endpoint. Identity is optional at
// the middleware layer so the handler can report unauthenticated itself.
func SetupQARoutes(router *gin.Engine, qa QuestionAnswerer, authMiddleware *middleware.AuthMiddleware, limiters ...gin.HandlerFunc) {
	group := router.Group("/api/qa")
	group.Use(authMiddleware.OptionalAuth())
	group.Use(limiters...)
	group.POST("/ask", HandleAsk(qa))
}

// HandleAsk handles POST /api/qa/ask.
func HandleAsk(qa QuestionAnswerer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AskRequest
		// A malformed body is reported through the same validation as an
		// empty one, after the identity check.
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Debug("Ignoring malformed question body", "request_id", middleware.GetRequestID(c), "error", err)
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		resp, err := qa.Ask(ctx, middleware.GetUserID(c), req)
		if err != nil {
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
