package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/api"
	"github.com/peakay-kush/PK-Automations-sub001/internal/api/middleware"
	"github.com/peakay-kush/PK-Automations-sub001/internal/app/service"
	"github.com/peakay-kush/PK-Automations-sub001/internal/app/worker"
	"github.com/peakay-kush/PK-Automations-sub001/internal/common/security"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/repository"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/config"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/database"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/logger"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/mail"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/queue"
)

type repositories struct {
	users    repository.UserRepository
	orders   repository.OrderRepository
	products repository.ProductRepository
	shipping repository.ShippingRepository
}

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Logger
	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()

	// 3. Storage
	repos, db, err := openStorage(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("storage unavailable", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}
	zl.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	// 4. Redis (optional)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = queue.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zl.Fatal("redis unavailable", zap.Error(err))
		}
		defer rdb.Close()
		zl.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	} else {
		zl.Warn("REDIS_ADDR not set: status notifications and login rate limiting are disabled")
	}

	// 5. Services
	tokens, err := security.NewTokenService(cfg.JWTKey, cfg.JWTExp)
	if err != nil {
		zl.Fatal("token service", zap.Error(err))
	}
	var notifier service.Notifier = service.NewLogNotifier(zl)
	if rdb != nil {
		notifier = service.NewRedisNotifier(rdb, cfg.NotifyQueueName)
	}

	authService := service.NewAuthService(repos.users, tokens, zl)
	userService := service.NewUserAdminService(repos.users, zl)
	orderService := service.NewOrderService(repos.orders, notifier, zl)
	catalogService := service.NewCatalogService(repos.products, repos.shipping)
	gate := middleware.NewGate(tokens, repos.users, zl)

	// 6. Notification worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if rdb != nil {
		sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		if sender.Enabled() {
			notificationWorker := worker.NewNotificationWorker(rdb, sender, worker.Options{
				QueueName:  cfg.NotifyQueueName,
				LockPrefix: cfg.NotifyLockPrefix,
				LockTTL:    time.Duration(cfg.NotifyLockTTLSeconds) * time.Second,
				AdminEmail: cfg.AdminEmail,
			}, zl.Named("notifications"))
			go notificationWorker.Start(workerCtx)
		} else {
			zl.Warn("SMTP_HOST/MAIL_FROM not set: notification jobs will stay queued")
		}
	}

	// 7. Router & HTTP server
	router := api.NewRouter(api.Deps{
		AuthService:     authService,
		UserService:     userService,
		OrderService:    orderService,
		CatalogService:  catalogService,
		Gate:            gate,
		Log:             zl,
		Redis:           rdb,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: time.Duration(cfg.LoginRateWindowSeconds) * time.Second,
		CORSOrigins:     cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		zl.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("could not listen", zap.String("addr", server.Addr), zap.Error(err))
		}
	}()

	<-stop

	zl.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
		return
	}
	zl.Info("server and worker stopped gracefully")
}

func openStorage(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*repositories, *sql.DB, error) {
	if cfg.StorageDriver == config.StorageMemory {
		store := repository.NewMemoryStore()
		return &repositories{
			users:    store.Users(),
			orders:   store.Orders(),
			products: store.Products(),
			shipping: store.ShippingLocations(),
		}, nil, nil
	}

	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return &repositories{
		users:    repository.NewPgUserRepository(db),
		orders:   repository.NewPgOrderRepository(db, zl),
		products: repository.NewPgProductRepository(db),
		shipping: repository.NewPgShippingRepository(db),
	}, db, nil
}
