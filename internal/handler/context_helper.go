package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nexus-edu/nexus-enroll-api/internal/middleware"
	"github.com/nexus-edu/nexus-enroll-api/internal/models"
)

// currentUserID returns the authenticated caller's ID, empty when the
// route is unauthenticated.
func currentUserID(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return ""
	}
	id, _ := value.(string)
	return id
}

// currentRole returns the authenticated caller's role.
func currentRole(c *gin.Context) models.UserRole {
	value, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return ""
	}
	role, _ := value.(models.UserRole)
	return role
}
