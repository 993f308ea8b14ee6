package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"booking-service/internal/app"
	"booking-service/internal/booking"
	"booking-service/internal/calendar"
	"booking-service/internal/config"
	"booking-service/internal/credit"
	"booking-service/internal/lock"
	"booking-service/internal/logging"
	"booking-service/internal/notify"
	"booking-service/internal/rules"
	"booking-service/internal/server"
	"booking-service/internal/store"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	logger := logging.New(cfg.IsProduction())
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL required")
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	if err := store.Bootstrap(ctx, pool); err != nil {
		log.Fatalf("failed to bootstrap schema: %v", err)
	}

	rdb, err := lock.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		log.Fatalf("invalid BUSINESS_TIMEZONE %q: %v", cfg.BusinessTimezone, err)
	}

	oauth := calendar.NewOAuthManager(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, pool)
	if oauth == nil {
		log.Fatal("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL required")
	}

	rulesStore := rules.NewStore(pool)
	creditStore := credit.NewPgStore(pool)
	ledger := credit.NewLedger(creditStore, logger)
	gateway := calendar.NewGoogleGateway(oauth, logger)
	sink := notify.NewSMTPSink(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
		cfg.SMTPFrom, cfg.AdminEmail, cfg.BusinessName, logger)
	locker := lock.NewRedisCalendarLocker(rdb, 30*time.Second)
	idem := lock.NewRedisIdempotencyGuard(rdb, 24*time.Hour)

	orc := booking.NewOrchestrator(rulesStore, gateway, ledger, sink, locker, idem, loc, logger)

	appInstance := &app.App{
		Cfg:     cfg,
		Log:     logger,
		Orc:     orc,
		Rules:   rulesStore,
		Credits: creditStore,
		OAuth:   oauth,
		DB:      pool,
		Redis:   rdb,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// OAuth callback and health (must be before auth middleware)
	router.GET("/oauth2callback", appInstance.GoogleOAuth2CallbackHandler)
	router.GET("/health", appInstance.HealthHandler)

	router.Use(app.AuthMiddleware(cfg.JWTSecret, cfg.StaticTokens))

	api := router.Group("/api")
	{
		api.GET("/slots", appInstance.GetSlotsHandler)
		api.GET("/busy", appInstance.CheckAvailabilityHandler)
		api.POST("/bookings", appInstance.CreateBookingHandler)
		api.DELETE("/bookings/:id", appInstance.CancelBookingHandler)

		admin := api.Group("/admin")
		{
			admin.GET("/rules", appInstance.GetRulesHandler)
			admin.PUT("/rules", appInstance.PutRulesHandler)
			admin.POST("/credits", appInstance.GrantCreditHandler)
			admin.GET("/credits/:user_id", appInstance.ListCreditsHandler)
		}

		cal := api.Group("/calendar")
		{
			cal.GET("/auth", appInstance.GoogleAuthHandler)
		}
	}

	server.Run(router, cfg.AppPort)
}
