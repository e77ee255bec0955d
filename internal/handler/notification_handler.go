package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/response"
)

type notificationService interface {
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	Broadcast(ctx context.Context, message string, role models.UserRole) (int, error)
}

// NotificationHandler exposes the user inbox and admin broadcast.
type NotificationHandler struct {
	notifications notificationService
	logger        *zap.Logger
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications notificationService, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// List godoc
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Param unread_only query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread_only") == "true"
	notifications, err := h.notifications.ListByUser(c.Request.Context(), currentUserID(c), unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, notifications)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Produce json
// @Param notificationId path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{notificationId}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID := c.Param("notificationId")
	if err := h.notifications.MarkRead(c.Request.Context(), notificationID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"notification_id": notificationID, "status": "read"})
}

// Broadcast godoc
// @Summary Broadcast a system message to a role
// @Tags notifications
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req struct {
		Message string          `json:"message" binding:"required"`
		Role    models.UserRole `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	delivered, err := h.notifications.Broadcast(c.Request.Context(), req.Message, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"delivered": delivered})
}
