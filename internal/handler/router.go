package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Levels        *LevelHandler
	Grades        *GradeHandler
	Sections      *SectionHandler
	Teachers      *TeacherHandler
	Students      *StudentHandler
	AcademicYears *AcademicYearHandler
	Enrollments   *EnrollmentHandler
	Dashboard     *DashboardHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes mounts the API under prefix and the probes at the root.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	levels := api.Group("/levels")
	levels.GET("", h.Levels.List)
	levels.POST("", h.Levels.Create)
	levels.GET("/:id", h.Levels.Get)
	levels.PUT("/:id", h.Levels.Update)
	levels.DELETE("/:id", h.Levels.Delete)

	grades := api.Group("/grades")
	grades.GET("", h.Grades.List)
	grades.POST("", h.Grades.Create)
	grades.GET("/level/:levelId", h.Grades.ListByLevel)
	grades.GET("/:id", h.Grades.Get)
	grades.PUT("/:id", h.Grades.Update)
	grades.DELETE("/:id", h.Grades.Delete)

	sections := api.Group("/sections")
	sections.GET("", h.Sections.List)
	sections.POST("", h.Sections.Create)
	sections.GET("/vacancies", h.Sections.ListWithVacancies)
	sections.GET("/grade/:gradeId", h.Sections.ListByGrade)
	sections.GET("/:id", h.Sections.Get)
	sections.PUT("/:id", h.Sections.Update)
	sections.DELETE("/:id", h.Sections.Delete)

	teachers := api.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.POST("", h.Teachers.Create)
	teachers.GET("/:id", h.Teachers.Get)
	teachers.PUT("/:id", h.Teachers.Update)
	teachers.DELETE("/:id", h.Teachers.Delete)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)

	years := api.Group("/academic-years")
	years.GET("", h.AcademicYears.List)
	years.POST("", h.AcademicYears.Create)
	years.GET("/active", h.AcademicYears.Active)
	years.GET("/:id", h.AcademicYears.Get)
	years.PUT("/:id", h.AcademicYears.Update)
	years.PUT("/:id/activate", h.AcademicYears.Activate)
	years.DELETE("/:id", h.AcademicYears.Delete)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.POST("", h.Enrollments.Create)
	enrollments.GET("/student/:studentId", h.Enrollments.ListByStudent)
	enrollments.GET("/section/:sectionId", h.Enrollments.ListBySection)
	enrollments.GET("/section/:sectionId/export", h.Enrollments.ExportSection)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.PUT("/:id/status", h.Enrollments.UpdateStatus)
	enrollments.DELETE("/:id", h.Enrollments.Delete)

	api.GET("/dashboard/statistics", h.Dashboard.Statistics)
}
