package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/api/handlers"
	"fintrack/internal/repository"
	"fintrack/internal/service"
	"fintrack/migrations"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/llm"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"
	"fintrack/pkg/push"
	"fintrack/pkg/scheduler"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// @title fintrack API
// @version 1.0
// @description Personal finance tracking with AI-assisted bank statement import.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting fintrack service")

	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	dbManager := postgres.NewManager(&cfg.Database, appLogger)
	defer dbManager.Close()

	db, err := dbManager.GetConnection(ctx)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := migrations.Run(ctx, db, "up"); err != nil {
			appLogger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		appLogger.Info("Migrations applied")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	budgetRepo := repository.NewBudgetRepository(db, appLogger)
	goalRepo := repository.NewGoalRepository(db, appLogger)
	subRepo := repository.NewPushSubscriptionRepository(db, appLogger)
	scheduleRepo := repository.NewScheduleRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Inference backends
	providers, closeProviders := buildProviders(ctx, &cfg.LLM, appLogger)
	defer closeProviders()
	llmClient := llm.NewClient(appLogger.Named("llm"), providers...)
	if !llmClient.Configured() {
		appLogger.Warn("No inference provider configured, AI features fall back to rules")
	} else {
		appLogger.Info("Inference providers configured", zap.Strings("order", llmClient.Providers()))
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	txService := service.NewTransactionService(txRepo, cfg.Analysis.Currency, appLogger)
	budgetService := service.NewBudgetService(budgetRepo, txRepo, appLogger)
	goalService := service.NewGoalService(goalRepo, appLogger)

	importLogger := appLogger.Named("import")
	importService := service.NewImportService(
		service.NewLayoutDetector(llmClient, cfg.Import.SampleRows, cfg.Import.DayFirst, importLogger),
		service.NewClassifier(llmClient, importLogger),
		txRepo,
		service.ImportOptions{
			MaxBatchSize: cfg.Import.MaxBatchSize,
			MaxFileBytes: cfg.Import.MaxFileBytes,
			Currency:     cfg.Analysis.Currency,
		},
		importLogger,
	)

	analysisService := service.NewAnalysisService(llmClient, txRepo, cfg.Analysis.WindowDays, cfg.Analysis.Currency, appLogger)
	chatService := service.NewChatService(llmClient, txRepo, cfg.Analysis.Currency, appLogger)

	loc := cfg.Notification.Location()
	daily := scheduler.NewDaily(scheduleRepo, loc, appLogger.Named("scheduler"))

	var sender push.Sender
	webPush := push.NewWebPushSender(push.VAPIDConfig{
		PublicKey:  cfg.Notification.VAPIDPublicKey,
		PrivateKey: cfg.Notification.VAPIDPrivateKey,
		Subscriber: cfg.Notification.Subscriber,
	})
	if webPush.Configured() {
		sender = webPush
	} else {
		appLogger.Warn("VAPID keys missing, push notifications disabled")
	}

	notifyService := service.NewNotificationService(subRepo, txRepo, sender, daily, service.NotificationOptions{
		AppURL:         cfg.Notification.AppURL,
		Currency:       cfg.Analysis.Currency,
		Location:       loc,
		VAPIDPublicKey: cfg.Notification.VAPIDPublicKey,
	}, appLogger.Named("notify"))

	switch {
	case !cfg.Notification.DailyEnabled:
		// a slot stored by an earlier run must not come back on restore
		if err := notifyService.CancelSchedule(ctx); err != nil {
			appLogger.Warn("Failed to clear daily schedule", zap.Error(err))
		}
	case sender != nil:
		armDailyReminder(ctx, daily, notifyService, &cfg.Notification, appLogger)
	}

	// Setup router
	app := api.SetupRouter(api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, appLogger),
		Transaction:  handlers.NewTransactionHandler(txService, appLogger),
		Budget:       handlers.NewBudgetHandler(budgetService, appLogger),
		Goal:         handlers.NewGoalHandler(goalService, appLogger),
		Import:       handlers.NewImportHandler(importService, importLogger),
		Advisor:      handlers.NewAdvisorHandler(analysisService, chatService, appLogger),
		Notification: handlers.NewNotificationHandler(notifyService, appLogger),
	}, jwtManager, cfg, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// buildProviders returns the configured backends with LLM_PRIMARY first.
func buildProviders(ctx context.Context, cfg *config.LLMConfig, log *zap.Logger) ([]llm.Provider, func()) {
	var (
		chat    llm.Provider
		giga    llm.Provider
		closeFn = func() {}
	)

	if cfg.ChatCompletion.APIKey != "" {
		chat = llm.NewChatCompletions(cfg.ChatCompletion.BaseURL, cfg.ChatCompletion.APIKey, cfg.ChatCompletion.Model, cfg.RequestTimeout)
	}
	if cfg.GigaChat.APIKey != "" {
		g, err := llm.NewGigaChat(ctx, cfg.GigaChat.APIKey, cfg.GigaChat.Scope, cfg.GigaChat.InsecureSkipVerify, log.Named("gigachat"))
		if err != nil {
			log.Error("Failed to initialize GigaChat, continuing without it", zap.Error(err))
		} else {
			giga = g
			closeFn = func() { _ = g.Close() }
		}
	}

	ordered := []llm.Provider{chat, giga}
	if cfg.Primary == llm.GigaChatName {
		ordered = []llm.Provider{giga, chat}
	}

	var providers []llm.Provider
	for _, p := range ordered {
		if p != nil {
			providers = append(providers, p)
		}
	}
	return providers, closeFn
}

// armDailyReminder restores the persisted schedule or creates it from config.
func armDailyReminder(ctx context.Context, daily *scheduler.Daily, notify *service.NotificationService, cfg *config.NotificationConfig, log *zap.Logger) {
	restored, err := daily.Restore(ctx, notify.DailyJob)
	if err != nil {
		log.Warn("Failed to restore daily schedule", zap.Error(err))
	}
	if restored {
		st := daily.Status()
		if st.Hour == cfg.DailyHour && st.Minute == cfg.DailyMinute {
			return
		}
	}

	next, err := daily.ScheduleDaily(ctx, cfg.DailyHour, cfg.DailyMinute, notify.DailyJob)
	if err != nil {
		log.Error("Failed to schedule daily reminder", zap.Error(err))
		return
	}
	log.Info("Daily reminder scheduled", zap.Time("next", next))
}
