package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	"parking-ticket-system/config"
	"parking-ticket-system/internal/handlers"
	"parking-ticket-system/internal/services"
	"parking-ticket-system/internal/services/bank"
	"parking-ticket-system/internal/store"
	_ "parking-ticket-system/migrations"
	"parking-ticket-system/monitoring"
	"parking-ticket-system/security"
	"parking-ticket-system/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis. Audit trail and attempt limiting are skipped without it.
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, running without audit trail and attempt limiter", "error", err)
	} else {
		defer redisClient.Close()
	}

	monitor := monitoring.NewMonitor()

	ticketStore := newTicketStore(app, cfg)

	gateway, err := bank.NewGateway(bank.Config{
		Provider: bank.ProviderSimulated,
		Delay:    cfg.SettlementDelay,
		Breaker:  utils.DefaultBreakerSettings(),
	})
	if err != nil {
		return err
	}

	// Initialize services
	opts := []services.SettlementOption{services.WithMonitor(monitor)}

	var auditTrail *services.AuditTrail
	if redisClient != nil {
		auditTrail = services.NewAuditTrail(redisClient, cfg.AuditTrailSize)
		opts = append(opts,
			services.WithAuditor(auditTrail),
			services.WithAttemptLimiter(security.NewRateLimiter(redisClient, cfg.SettlementAttemptsPerMinute)),
		)
	}

	if cfg.PubNubEnabled() {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pnConfig.UUID = "parking-ticket-system"

		opts = append(opts, services.WithNotifier(services.NewPubNubNotifier(pubnub.NewPubNub(pnConfig))))
	}

	ticketService := services.NewTicketService(ticketStore, monitor)
	settlementService := services.NewSettlementService(ticketStore, gateway, opts...)

	// Initialize handlers
	var auditReader handlers.AuditReader
	if auditTrail != nil {
		auditReader = auditTrail
	}
	ticketHandler := handlers.NewTicketHandler(ticketService, settlementService, auditReader)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	if cfg.EnableMetrics {
		go func() {
			if err := monitoring.StartMetricsServer(ctx, cfg.MetricsPort); err != nil {
				slog.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		api := e.Router.Group("/api/v1")
		api.Bind(apis.RequireAuth())

		// Ticket endpoints
		api.POST("/tickets", ticketHandler.CreateTicket)
		api.GET("/tickets", ticketHandler.ListTickets)
		api.GET("/tickets/{ticketId}", ticketHandler.GetTicket)
		api.POST("/tickets/{ticketId}/settle", ticketHandler.SettleTicket)
		api.GET("/tickets/{ticketId}/audit", ticketHandler.GetAuditTrail)

		// Admin endpoints
		api.GET("/admin/summary", ticketHandler.GetAdminSummary)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			return healthCheck(e, redisClient)
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func newTicketStore(app *pocketbase.PocketBase, cfg *config.Config) store.TicketStore {
	if cfg.StoreBackend == "memory" {
		slog.Warn("Using in-memory ticket store, tickets are lost on restart")
		return store.NewMemoryStore()
	}
	return store.NewPocketBaseStore(app)
}

func healthCheck(e *core.RequestEvent, redisClient *redis.Client) error {
	if redisClient == nil {
		return e.JSON(200, map[string]string{"status": "healthy", "redis": "disabled"})
	}
	if err := utils.RedisHealthCheck(redisClient); err != nil {
		return e.JSON(503, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return e.JSON(200, map[string]string{"status": "healthy"})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
