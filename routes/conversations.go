package routes

import (
	"context"
	"net/http"
	"strconv"

	"docqa-backend/internal/logger"
	"docqa-backend/middleware"
	"docqa-backend/models"
	"docqa-backend/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultConversationLimit = 50
	maxConversationLimit     = 200
)

// ConversationLister reads a user's Q&A history.
type ConversationLister interface {
	ListConversations(ctx context.Context, userID, documentID string, limit int) ([]models.Conversation, error)
}

func SetupConversationRoutes(router *gin.Engine, conversations ConversationLister, authMiddleware *middleware.AuthMiddleware) {
	group := router.Group("/api/conversations")
	group.Use(authMiddleware.RequireAuth())
	group.GET("", HandleListConversations(conversations))
}

// HandleListConversations handles GET /api/conversations?documentId=&limit=.
func HandleListConversations(conversations ConversationLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultConversationLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				utils.RespondWithBadRequest(c, "limit must be a positive integer", nil)
				return
			}
			if n > maxConversationLimit {
				n = maxConversationLimit
			}
			limit = n
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		userID := middleware.GetUserID(c)
		items, err := conversations.ListConversations(ctx, userID, c.Query("documentId"), limit)
		if err != nil {
			logger.Error("Failed to list conversations", "user_id", userID, "error", err)
			utils.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"conversations": items, "count": len(items)})
	}
}
