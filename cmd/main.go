package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/campuspulse/campuspulse-backend/internal/clients/redis"
	"github.com/campuspulse/campuspulse-backend/internal/db"
	"github.com/campuspulse/campuspulse-backend/internal/handlers"
	"github.com/campuspulse/campuspulse-backend/internal/logger"
	"github.com/campuspulse/campuspulse-backend/internal/middleware"
	"github.com/campuspulse/campuspulse-backend/internal/observability"
	"github.com/campuspulse/campuspulse-backend/internal/repos"
	"github.com/campuspulse/campuspulse-backend/internal/server"
	"github.com/campuspulse/campuspulse-backend/internal/services"
	"github.com/campuspulse/campuspulse-backend/internal/types"
	"github.com/campuspulse/campuspulse-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "campuspulse-backend",
		Environment: logMode,
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	templateRepo := repos.NewTemplateRepo(thePG, log)
	sectionRepo := repos.NewSectionRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)
	publicationRepo := repos.NewPublicationRepo(thePG, log)
	submissionRepo := repos.NewSubmissionRepo(thePG, log)
	answerRepo := repos.NewSubmissionAnswerRepo(thePG, log)
	formationRepo := repos.NewFormationCacheRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	templateService := services.NewTemplateService(thePG, log, templateRepo, sectionRepo, questionRepo, publicationRepo)
	publicationService := services.NewPublicationService(thePG, log, templateRepo, publicationRepo)
	questionnaireService := services.NewQuestionnaireService(thePG, log, templateRepo, sectionRepo, questionRepo, publicationRepo, submissionRepo, answerRepo)
	exportService := services.NewExportService(thePG, log, templateRepo, sectionRepo, questionRepo, publicationRepo, submissionRepo, answerRepo)
	formationService := services.NewFormationService(thePG, log, formationRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	templateHandler := handlers.NewTemplateHandler(log, templateService)
	publicationHandler := handlers.NewPublicationHandler(log, publicationService, exportService)
	questionnaireHandler := handlers.NewQuestionnaireHandler(log, questionnaireService)
	formationHandler := handlers.NewFormationHandler(log, formationService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Formation events
	if os.Getenv("REDIS_ADDR") != "" {
		formationBus, err := redis.NewFormationBus(log)
		if err != nil {
			log.Warn("Formation bus init failed", "error", err)
		} else {
			defer formationBus.Close()
			err = formationBus.StartConsumer(context.Background(), func(event types.FormationCreatedEvent) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if _, err := formationService.AddOrUpdateFormation(ctx, nil, event); err != nil {
					log.Warn("Formation event apply failed", "code", event.Code, "error", err)
				}
			})
			if err != nil {
				log.Warn("Formation consumer start failed", "error", err)
			}
		}
	}

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:       authMiddleware,
		TemplateHandler:      templateHandler,
		PublicationHandler:   publicationHandler,
		QuestionnaireHandler: questionnaireHandler,
		FormationHandler:     formationHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
