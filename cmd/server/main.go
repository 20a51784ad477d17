package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/reportflow/reportflow/internal/application/dispatcher"
	"github.com/reportflow/reportflow/internal/application/service"
	appwf "github.com/reportflow/reportflow/internal/application/workflow"
	"github.com/reportflow/reportflow/internal/config"
	"github.com/reportflow/reportflow/internal/domain/entity"
	"github.com/reportflow/reportflow/internal/domain/event"
	"github.com/reportflow/reportflow/internal/infrastructure/persistence/repository"
	"github.com/reportflow/reportflow/internal/infrastructure/persistence/sqlite"
	"github.com/reportflow/reportflow/internal/infrastructure/worker"
	httpiface "github.com/reportflow/reportflow/internal/interfaces/http"
	"github.com/reportflow/reportflow/pkg/database"
	"github.com/reportflow/reportflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Load .env before viper reads the environment
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting report approval workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Database and migrations
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories and transaction manager
	txManager := sqlite.NewDB(db.DB, logger)
	reportRepo := repository.NewReportRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	logRepo := repository.NewTransitionLogRepository(db.DB, logger)
	instanceRepo := repository.NewInstanceRepository(db.DB, logger)

	svcLogger := &zapLoggerAdapter{logger: logger}

	// Event dispatcher and workflow engine
	eventDispatcher := dispatcher.NewDispatcher(dispatcher.WithLogger(svcLogger))
	engine := appwf.NewEngine(instanceRepo, svcLogger, appwf.WithDispatcher(eventDispatcher))

	// State-change notifier behind a queue-draining worker
	notifier := service.NewStateChangeNotifier(reportRepo, userRepo, logRepo, txManager, svcLogger)
	stateWorker := worker.NewStateChangeWorker(worker.StateChangeWorkerConfig{
		QueueSize:    cfg.Notifier.QueueSize,
		MaxAttempts:  cfg.Notifier.MaxAttempts,
		RetryBackoff: cfg.Notifier.RetryBackoff,
		ApplyTimeout: worker.DefaultStateChangeWorkerConfig().ApplyTimeout,
	}, notifier, logger)

	eventDispatcher.SubscribeNamed(event.TypeStateChanged, "state-change-worker",
		func(ctx context.Context, evt *event.Event) error {
			return stateWorker.Enqueue(evt)
		})
	eventDispatcher.SubscribeNamed(event.TypeInstanceStarted, "instance-audit",
		func(ctx context.Context, evt *event.Event) error {
			logger.Info("Workflow instance started",
				zap.Int64("report_id", evt.ReportID),
				zap.String("instance_ref", evt.GetPayloadString("instance_ref")))
			return nil
		})

	workerManager := worker.NewManager(logger)
	workerManager.Register(stateWorker)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.StartAll(rootCtx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// Services
	tokenManager, err := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to initialize token manager", zap.Error(err))
	}

	reportService := service.NewReportService(reportRepo, userRepo, logRepo, engine, txManager, svcLogger)
	authService := service.NewAuthService(userRepo, tokenManager, svcLogger)

	if err := seedUsers(rootCtx, cfg.Seed, authService, userRepo, logger); err != nil {
		logger.Fatal("Failed to seed users", zap.Error(err))
	}

	// HTTP server
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, reportService, authService, tokenManager, svcLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(rootCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()

	if err := workerManager.StopAll(); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}
	if err := eventDispatcher.Close(); err != nil {
		logger.Error("Dispatcher shutdown error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// seedUsers creates the configured users when they do not exist yet
func seedUsers(
	ctx context.Context,
	seed config.SeedConfig,
	authService service.AuthService,
	userRepo interface {
		GetByUsername(ctx context.Context, username string) (*entity.User, error)
	},
	logger *zap.Logger,
) error {
	for _, u := range seed.Users {
		existing, err := userRepo.GetByUsername(ctx, u.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		roles := make([]entity.Role, 0, len(u.Roles))
		for _, r := range u.Roles {
			roles = append(roles, entity.Role(r))
		}

		if _, err := authService.Register(ctx, u.Username, u.Password, roles); err != nil {
			return err
		}
		logger.Info("Seed user created", zap.String("username", u.Username))
	}
	return nil
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces used
// across the application layers.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
