package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/campuspulse/campuspulse-backend/internal/handlers"
	"github.com/campuspulse/campuspulse-backend/internal/middleware"
	"github.com/campuspulse/campuspulse-backend/internal/types"
)

type RouterConfig struct {
	AuthMiddleware       *middleware.AuthMiddleware
	TemplateHandler      *handlers.TemplateHandler
	PublicationHandler   *handlers.PublicationHandler
	QuestionnaireHandler *handlers.QuestionnaireHandler
	FormationHandler     *handlers.FormationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("campuspulse-backend"))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Template authoring (Admin)
	template := api.Group("/template")
	template.Use(cfg.AuthMiddleware.RequireRole(types.RoleAdmin))
	{
		template.POST("/create", cfg.TemplateHandler.Create)
		template.GET("/all", cfg.TemplateHandler.List)
		template.GET("/:id", cfg.TemplateHandler.Get)
		template.PUT("/update/:id", cfg.TemplateHandler.Update)
		template.DELETE("/delete/:id", cfg.TemplateHandler.Delete)
		template.POST("/:id/publish", cfg.TemplateHandler.Publish)
		template.POST("/:id/publications", cfg.PublicationHandler.Open)

		template.POST("/:id/sections", cfg.TemplateHandler.AddSection)
		template.GET("/:id/sections", cfg.TemplateHandler.ListSections)
		template.GET("/:id/sections/:sectionId", cfg.TemplateHandler.GetSection)
		template.PUT("/:id/sections/:sectionId", cfg.TemplateHandler.UpdateSection)
		template.DELETE("/:id/sections/:sectionId", cfg.TemplateHandler.DeleteSection)

		template.POST("/:id/sections/:sectionId/question/create", cfg.TemplateHandler.AddQuestion)
		template.GET("/:id/sections/:sectionId/questions", cfg.TemplateHandler.ListQuestions)
		template.GET("/:id/question/:questionId", cfg.TemplateHandler.GetQuestion)
		template.PUT("/:id/question/:questionId", cfg.TemplateHandler.UpdateQuestion)
		template.DELETE("/:id/question/:questionId", cfg.TemplateHandler.DeleteQuestion)
	}

	// Respondents
	student := api.Group("/student")
	student.Use(cfg.AuthMiddleware.RequireRole(types.RoleStudent))
	{
		student.GET("/questionnaires", cfg.QuestionnaireHandler.ListOpen)
		student.POST("/questionnaires/submit/:templateCode", cfg.QuestionnaireHandler.Submit)
		student.POST("/questionnaires/submit/:templateCode/complete", cfg.QuestionnaireHandler.Complete)
	}
	professor := api.Group("/professor")
	professor.Use(cfg.AuthMiddleware.RequireRole(types.RoleProfessor))
	{
		professor.GET("/questionnaires", cfg.QuestionnaireHandler.ListOpen)
		professor.POST("/questionnaires/submit/:templateCode", cfg.QuestionnaireHandler.Submit)
		professor.POST("/questionnaires/submit/:templateCode/complete", cfg.QuestionnaireHandler.Complete)
	}
	professional := api.Group("/professional")
	professional.Use(cfg.AuthMiddleware.RequireRole(types.RoleProfessional))
	{
		professional.GET("/questionnaires", cfg.QuestionnaireHandler.ListOpen)
		professional.POST("/questionnaires/submit/:templateCode", cfg.QuestionnaireHandler.Submit)
		professional.POST("/questionnaires/submit/:templateCode/complete", cfg.QuestionnaireHandler.Complete)
	}

	// Collaborators (statistics export, catalog relay)
	api.GET("/publications", cfg.PublicationHandler.List)
	api.GET("/publications/:id/submissions", cfg.PublicationHandler.Submissions)
	api.POST("/formation-cache", cfg.FormationHandler.Ingest)
	api.GET("/formation-cache", cfg.FormationHandler.List)

	return router
}
