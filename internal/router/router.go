package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/nexus-edu/nexus-enroll-api/internal/handler"
	"github.com/nexus-edu/nexus-enroll-api/internal/middleware"
	"github.com/nexus-edu/nexus-enroll-api/internal/models"
	"github.com/nexus-edu/nexus-enroll-api/internal/service"
	"github.com/nexus-edu/nexus-enroll-api/pkg/config"
	"github.com/nexus-edu/nexus-enroll-api/pkg/logger"
	"github.com/nexus-edu/nexus-enroll-api/pkg/metrics"
	"github.com/nexus-edu/nexus-enroll-api/pkg/middleware/cors"
	"github.com/nexus-edu/nexus-enroll-api/pkg/middleware/requestid"
)

// Dependencies carries everything the router wires together.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	DB      *sqlx.DB
	Redis   *redis.Client

	Auth          *service.AuthService
	Enrollments   *handler.EnrollmentHandler
	Courses       *handler.CourseHandler
	AuthHandler   *handler.AuthHandler
	Grades        *handler.GradeHandler
	Users         *handler.UserHandler
	Reports       *handler.ReportHandler
	Notifications *handler.NotificationHandler
}

// New assembles the Gin engine with middleware and the full route table.
//
// The student-facing enrollment surface (catalogue browse, enroll, drop,
// schedule) is open; management surfaces require a token and role.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestid.Middleware())
	engine.Use(logger.GinMiddleware(deps.Logger))
	engine.Use(cors.New(deps.Config.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		engine.Use(deps.Metrics.GinMiddleware())
	}

	engine.GET("/health", healthHandler())
	engine.GET("/ready", readyHandler(deps.DB, deps.Redis))
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group(deps.Config.APIPrefix)

	api.POST("/auth/login", deps.AuthHandler.Login)
	api.POST("/auth/signup", deps.AuthHandler.Signup)

	// Open enrollment surface.
	api.GET("/courses", deps.Courses.Browse)
	api.GET("/courses/:courseId", deps.Courses.Get)
	api.POST("/enroll", deps.Enrollments.Enroll)
	api.DELETE("/enroll/:enrollmentId", deps.Enrollments.Drop)
	api.GET("/students/:studentId/schedule", deps.Enrollments.Schedule)
	api.GET("/students/:studentId/enrollments", deps.Enrollments.History)

	// The signed token is the credential here.
	api.GET("/reports/exports/:token", deps.Reports.Download)

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Auth))

	authed.GET("/notifications", deps.Notifications.List)
	authed.PATCH("/notifications/:notificationId/read", deps.Notifications.MarkRead)
	authed.GET("/students/:studentId/grades", deps.Grades.ListByStudent)

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin))

	staff.GET("/courses/:courseId/roster", deps.Courses.Roster)
	staff.GET("/courses/:courseId/grades", deps.Grades.ListByCourse)
	staff.GET("/faculty/:facultyId/courses", deps.Courses.ListByInstructor)
	staff.POST("/grades/batch", deps.Grades.SubmitBatch)
	staff.POST("/grades/:gradeId/finalize", deps.Grades.Finalize)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.POST("/enrollments/override", deps.Enrollments.Override)
	admin.POST("/courses", deps.Courses.Create)
	admin.PUT("/courses/:courseId", deps.Courses.Update)
	admin.DELETE("/courses/:courseId", deps.Courses.Delete)

	admin.GET("/admin/users", deps.Users.List)
	admin.POST("/admin/users", deps.Users.Create)
	admin.GET("/admin/users/:userId", deps.Users.Get)
	admin.PUT("/admin/users/:userId", deps.Users.Update)
	admin.PATCH("/admin/users/:userId/active", deps.Users.SetActive)
	admin.DELETE("/admin/users/:userId", deps.Users.Delete)
	admin.POST("/admin/notifications/broadcast", deps.Notifications.Broadcast)

	admin.GET("/reports/enrollment-stats", deps.Reports.EnrollmentStats)
	admin.GET("/reports/faculty-workload", deps.Reports.AllFacultyWorkloads)
	admin.GET("/reports/faculty-workload/:facultyId", deps.Reports.FacultyWorkload)
	admin.GET("/reports/course-popularity", deps.Reports.CoursePopularity)
	admin.GET("/reports/high-utilization", deps.Reports.HighUtilization)

	return engine
}

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func readyHandler(db *sqlx.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(checkCtx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(checkCtx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
