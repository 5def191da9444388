package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"quiz-engine/internal/adaptive"
	"quiz-engine/internal/cache"
	"quiz-engine/internal/config"
	"quiz-engine/internal/db"
	"quiz-engine/internal/event"
	"quiz-engine/internal/handlers"
	"quiz-engine/internal/logger"
	"quiz-engine/internal/progress"
	"quiz-engine/internal/repository"
	"quiz-engine/internal/selection"
	"quiz-engine/internal/service"
	"quiz-engine/internal/srs"
)

const snapshotTTL = 7 * 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	mongoClient, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		zl.Fatal("connect mongo", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	database := mongoClient.Database(cfg.MongoDB)

	redisClient, err := cache.NewRedis(ctx, cfg.RedisAddr)
	if err != nil {
		zl.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	var publisher *event.Publisher
	if cfg.RabbitURI != "" && cfg.RabbitExchange != "" {
		publisher, err = event.NewPublisher(cfg.RabbitURI, cfg.RabbitExchange, zl)
		if err != nil {
			zl.Fatal("connect rabbitmq", zap.Error(err))
		}
		defer publisher.Close()
	} else {
		zl.Info("rabbitmq not configured, events will not be published")
	}

	// Repositories
	questionRepo := repository.NewQuestionRepository(database)
	quizRepo := repository.NewQuizRepository(database)
	performanceRepo := repository.NewPerformanceRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	responseRepo := repository.NewResponseRepository(database)
	resultRepo := repository.NewResultRepository(database)

	// Scheduling core
	srsConfig := srs.DefaultConfig()
	srsConfig.BatchSize = cfg.Quiz.ReviewBatchSize
	updater := srs.NewUpdater(srsConfig)
	scheduler := srs.NewScheduler(srsConfig)

	// Services
	snapshots := progress.NewStore(redisClient, snapshotTTL)
	performanceService := service.NewPerformanceService(performanceRepo, responseRepo, updater)
	batchBuilder := selection.NewBatchBuilder(questionRepo, performanceRepo, scheduler)
	sessionManager := adaptive.NewManager(sessionRepo, questionRepo)

	var events service.EventSink
	if publisher != nil {
		events = publisher
	}
	attemptService := service.NewAttemptService(
		quizRepo, questionRepo, sessionRepo, resultRepo,
		performanceService, snapshots, events,
		service.AttemptDefaults{
			PassingScore:    cfg.Quiz.PassingScore,
			AutoAdvance:     cfg.Quiz.AutoAdvance,
			AllowBackNav:    cfg.Quiz.AllowBackNav,
			ExpiryCompletes: true,
		}, zl)
	reviewService := service.NewReviewService(
		performanceRepo, questionRepo, scheduler, batchBuilder,
		sessionManager, events, zl)
	contentService := service.NewContentService(questionRepo, quizRepo)

	// Handlers
	attemptHandler := handlers.NewAttemptHandler(attemptService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	contentHandler := handlers.NewContentHandler(contentService)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	publicContent := r.Group("/public/quizz")
	{
		publicContent.GET("/question", contentHandler.ListQuestions)
		publicContent.GET("/question/:id", contentHandler.GetQuestion)
		publicContent.GET("/quiz", contentHandler.ListQuizzes)
		publicContent.GET("/quiz/:id", contentHandler.GetQuiz)
	}

	protected := r.Group("/protected/quizz")
	protected.Use(requireUser())
	{
		protected.POST("/question", contentHandler.CreateQuestion)
		protected.POST("/quiz", contentHandler.CreateQuiz)

		attempt := protected.Group("/attempt")
		{
			attempt.POST("/", attemptHandler.StartAttempt)
			attempt.POST("/restore/:quizId", attemptHandler.RestoreAttempt)
			attempt.GET("/:id", attemptHandler.GetState)
			attempt.POST("/:id/answer", attemptHandler.SubmitAnswer)
			attempt.POST("/:id/next", attemptHandler.Next)
			attempt.POST("/:id/previous", attemptHandler.Previous)
			attempt.POST("/:id/goto/:index", attemptHandler.NavigateTo)
			attempt.POST("/:id/flag", attemptHandler.Flag)
			attempt.POST("/:id/pause", attemptHandler.Pause)
			attempt.POST("/:id/resume", attemptHandler.Resume)
			attempt.POST("/:id/complete", attemptHandler.Complete)
			attempt.POST("/:id/save", attemptHandler.SaveProgress)
			attempt.DELETE("/:id", attemptHandler.Discard)
		}

		review := protected.Group("/review")
		{
			review.GET("/due", reviewHandler.DueQuestions)
			review.GET("/stats", reviewHandler.Stats)
			review.POST("/session", reviewHandler.CreateSession)
			review.GET("/session", reviewHandler.ListSessions)
			review.GET("/session/:id", reviewHandler.GetSession)
			review.POST("/session/:id/complete", reviewHandler.CompleteSession)
		}
	}

	zl.Info("quiz engine listening", zap.String("addr", cfg.ListenAddr))
	if err := r.Run(cfg.ListenAddr); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

// requireUser rejects protected requests without the gateway's user header.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
