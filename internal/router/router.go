package router

import (
	"github.com/gin-gonic/gin"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/handler"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/middleware"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	"github.com/vidyalaya-labs/vidyalaya-api/internal/service"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Teachers   *handler.TeacherHandler
	Students   *handler.StudentHandler
	Locations  *handler.LocationHandler
	Attendance *handler.AttendanceHandler
	Metrics    *handler.MetricsHandler
}

// Register mounts all API routes under the given prefix. Teachers can mark
// and read their own attendance; registry and people management stay
// admin-only.
func Register(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		protected := auth.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.POST("/logout", h.Auth.Logout)
			protected.POST("/change-password", h.Auth.ChangePassword)
			protected.GET("/me", h.Auth.Me)
		}
	}

	users := api.Group("/users")
	users.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.POST("", h.Users.Create)
		users.PUT("/:id", h.Users.Update)
		users.DELETE("/:id", h.Users.Deactivate)
	}

	teachers := api.Group("/teachers")
	teachers.Use(middleware.JWT(authSvc))
	{
		teachers.GET("", middleware.RequireRoles(models.RoleAdmin), h.Teachers.List)
		teachers.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Teachers.Get)
		teachers.POST("", middleware.RequireRoles(models.RoleAdmin), h.Teachers.Create)
		teachers.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), h.Teachers.Update)
		teachers.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Teachers.Deactivate)
	}

	students := api.Group("/students")
	students.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		students.GET("", h.Students.List)
		students.GET("/:id", h.Students.Get)
	}

	studentsAdmin := api.Group("/students")
	studentsAdmin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		studentsAdmin.POST("", h.Students.Create)
		studentsAdmin.PUT("/:id", h.Students.Update)
		studentsAdmin.DELETE("/:id", h.Students.Deactivate)
	}

	locations := api.Group("/locations")
	locations.Use(middleware.JWT(authSvc))
	{
		locations.GET("", h.Locations.List)
		locations.GET("/:id", h.Locations.Get)
		locations.POST("", middleware.RequireRoles(models.RoleAdmin), h.Locations.Create)
		locations.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), h.Locations.Update)
		locations.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Locations.Delete)
	}

	attendance := api.Group("/attendance")
	attendance.Use(middleware.JWT(authSvc))
	{
		attendance.POST("", middleware.RequireRoles(models.RoleTeacher), h.Attendance.Submit)
		attendance.GET("/today", middleware.RequireRoles(models.RoleTeacher), h.Attendance.Today)
		attendance.GET("", middleware.RequireRoles(models.RoleAdmin), h.Attendance.List)
		attendance.GET("/reports/:id", h.Attendance.Report)
		attendance.GET("/reports/:id/export", h.Attendance.ExportReport)
	}

	if h.Metrics != nil {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
}
