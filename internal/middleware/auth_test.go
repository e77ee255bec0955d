package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	appErrors "github.com/nexus-edu/nexus-enroll-api/pkg/errors"
)

type validatorMock struct {
	claims *models.JWTClaims
	err    error
}

func (m validatorMock) ValidateToken(token string) (*models.JWTClaims, error) {
	return m.claims, m.err
}

func newAuthRouter(v tokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("", Auth(v))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ContextUserIDKey)})
	})
	return engine
}

func TestAuthMissingHeader(t *testing.T) {
	engine := newAuthRouter(validatorMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthInvalidToken(t *testing.T) {
	engine := newAuthRouter(validatorMock{err: appErrors.ErrUnauthorized})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthValidTokenSetsContext(t *testing.T) {
	engine := newAuthRouter(validatorMock{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestRequireRolesForbidden(t *testing.T) {
	engine := newAuthRouter(
		validatorMock{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}},
		models.RoleAdmin,
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesAllowed(t *testing.T) {
	engine := newAuthRouter(
		validatorMock{claims: &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}},
		models.RoleFaculty, models.RoleAdmin,
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
