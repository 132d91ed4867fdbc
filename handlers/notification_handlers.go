package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lightfolio/api/models"
	"lightfolio/api/store"
)

// NotificationHandlers serves the admin's notification inbox. These endpoints
// operate purely on notification/receipt rows; the visit detection itself
// happens at ingestion time.
type NotificationHandlers struct {
	Notifications *store.NotificationStore
	Logger        *zap.Logger
}

func NewNotificationHandlers(notifications *store.NotificationStore, logger *zap.Logger) *NotificationHandlers {
	return &NotificationHandlers{Notifications: notifications, Logger: logger}
}

// List returns the authenticated admin's receipts, newest first. Optional
// filters: ?unseen=true and ?lightbox_id=<id>.
func (h *NotificationHandlers) List(c *gin.Context) {
	adminID := c.GetInt("user_id")
	unseenOnly := c.Query("unseen") == "true"
	lightboxID := c.Query("lightbox_id")

	results, err := h.Notifications.ListForAdmin(c.Request.Context(), adminID, unseenOnly, lightboxID)
	if err != nil {
		h.Logger.Error("failed to list notifications", zap.Int("admin_user_id", adminID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}
	if results == nil {
		results = []models.AdminNotification{}
	}

	c.JSON(http.StatusOK, results)
}

// MarkSeen toggles the seen flag on the admin's receipt for one notification.
func (h *NotificationHandlers) MarkSeen(c *gin.Context) {
	adminID := c.GetInt("user_id")
	notificationID := c.Param("id")

	var req models.MarkSeenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.Notifications.SetSeen(c.Request.Context(), notificationID, adminID, *req.Seen)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.Logger.Error("failed to update notification receipt",
			zap.String("notification_id", notificationID),
			zap.Int("admin_user_id", adminID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"seen": *req.Seen})
}
