package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"brokerdesk/config"
	"brokerdesk/internal/handler"
	"brokerdesk/internal/mailer"
	"brokerdesk/internal/middleware"
	appredis "brokerdesk/internal/redis"
	"brokerdesk/internal/repository"
	"brokerdesk/internal/services"
	"brokerdesk/internal/storage"
	"brokerdesk/pkg/database"
	"brokerdesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == "release" {
		logMode = logger.ProductionMode
		gin.SetMode(gin.ReleaseMode)
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PresignTTL: cfg.S3PresignTTL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	var relay services.Relay
	if cfg.SESFromEmail != "" {
		sesMailer, err := mailer.NewSESMailer(context.Background(), cfg.SESRegion, cfg.SESFromEmail)
		if err != nil {
			log.Fatalf("Failed to initialize mail relay: %v", err)
		}
		relay = sesMailer
	} else {
		l.Warnf("SES_FROM not set, email delivery disabled")
	}

	redisClient := appredis.NewClient(appredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	limiter := appredis.NewRateLimiter(redisClient, appredis.DefaultRateLimitConfig())

	convRepo := repository.NewConversationRepository(db)
	contractRepo := repository.NewContractRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	identityRepo := repository.NewIdentityRepository(db)

	notifSvc := services.NewNotificationService(notifRepo, identityRepo, relay, l)
	convSvc := services.NewConversationService(convRepo)
	contractSvc := services.NewContractService(contractRepo, convSvc, notifSvc, s3Client, l)
	referralSvc := services.NewReferralService(referralRepo, convSvc, notifSvc, l)
	leadSvc := services.NewLeadService(leadRepo, identityRepo, convSvc, notifSvc, l)

	convHandler := handler.NewConversationHandler(convSvc)
	contractHandler := handler.NewContractHandler(contractSvc)
	referralHandler := handler.NewReferralHandler(referralSvc)
	leadHandler := handler.NewLeadHandler(leadSvc)
	notifHandler := handler.NewNotificationHandler(notifSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(l))
	r.Use(middleware.ErrorHandler(l))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	conversations := api.Group("/conversations")
	{
		conversations.POST("", convHandler.Create)
		conversations.GET("", convHandler.List)
		conversations.GET("/:id", convHandler.Get)
		conversations.POST("/:id/read", convHandler.MarkRead)
		conversations.POST("/:id/messages", middleware.MessageRateLimitMiddleware(limiter), convHandler.PostMessage)
	}

	contracts := api.Group("/contracts")
	{
		contracts.POST("", contractHandler.Create)
		contracts.GET("", contractHandler.ListByConversation)
		contracts.GET("/pending-count", contractHandler.PendingCount)
		contracts.GET("/:id", contractHandler.Get)
		contracts.GET("/:id/download", contractHandler.DownloadURL)
		contracts.POST("/:id/send", contractHandler.Send)
		contracts.POST("/:id/sign", contractHandler.Sign)
	}

	referrals := api.Group("/referrals")
	{
		referrals.POST("", referralHandler.Offer)
		referrals.GET("", referralHandler.ListMine)
		referrals.GET("/counts", referralHandler.Counts)
		referrals.GET("/:id", referralHandler.Get)
		referrals.POST("/:id/accept", referralHandler.Accept)
		referrals.POST("/:id/decline", referralHandler.Decline)
		referrals.POST("/:id/complete", referralHandler.Complete)
	}

	marketplace := api.Group("/marketplace")
	{
		marketplace.POST("/leads", leadHandler.PostLead)
		marketplace.GET("/leads", leadHandler.ListOpen)
		marketplace.POST("/leads/:id/claim", middleware.ClaimRateLimitMiddleware(limiter), leadHandler.Claim)
	}

	api.GET("/notifications", notifHandler.ListMine)

	l.Infof("Starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
