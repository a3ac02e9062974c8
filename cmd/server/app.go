package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/events"
	"github.com/phrazzld/edumind-api/internal/extract"
	"github.com/phrazzld/edumind-api/internal/platform/edgetts"
	"github.com/phrazzld/edumind-api/internal/platform/gemini"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/platform/objectstore"
	"github.com/phrazzld/edumind-api/internal/platform/postgres"
	"github.com/phrazzld/edumind-api/internal/service"
	"github.com/phrazzld/edumind-api/internal/service/auth"
	"github.com/phrazzld/edumind-api/internal/task"
)

// application holds the shared dependencies of the running server so they
// can be torn down in order on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService     *auth.JWTService
	userService    *service.UserService
	projectService *service.ProjectService
	contentService *service.ContentService
	chatService    *service.ChatService

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// runServe loads configuration, connects to the database, applies pending
// migrations and serves the API until interrupted.
func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_backend", cfg.Storage.Backend)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	log.Info("database connection established")

	if err := postgres.Migrate(ctx, db, "up", log); err != nil {
		_ = db.Close()
		return err
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// newApplication builds stores, providers, services and the task pipeline,
// then starts the task runner so that unfinished jobs resume.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{config: cfg, logger: log, db: db}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	log.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	userStore := postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, log)
	profileStore := postgres.NewPostgresProfileStore(db, log)
	projectStore := postgres.NewPostgresProjectStore(db, log)
	contentStore := postgres.NewPostgresContentStore(db, log)
	chatStore := postgres.NewPostgresChatStore(db, log)
	taskStore := postgres.NewPostgresTaskStore(db, log)

	objects, err := objectstore.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	documents := extract.NewReader(objects, log)

	generator, err := gemini.NewGeminiGenerator(ctx, log, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	log.Info("LLM generator initialized", "model", cfg.LLM.ModelName)
	speech := edgetts.NewSynthesizer(cfg.TTS, log)

	app.eventEmitter = events.NewInMemoryEventEmitter(log)
	pricing := service.Pricing{
		InputTokenPrice:  cfg.LLM.InputTokenPrice,
		OutputTokenPrice: cfg.LLM.OutputTokenPrice,
	}

	app.userService = service.NewUserService(db, userStore, profileStore, auth.BcryptVerifier{}, cfg.Billing, log)
	app.projectService = service.NewProjectService(db, projectStore, objects, cfg.Server.MaxUploadBytes, log)
	app.contentService, err = service.NewContentService(service.ContentDeps{
		DB:           db,
		Projects:     projectStore,
		Contents:     contentStore,
		Profiles:     profileStore,
		Balance:      app.userService,
		Emitter:      app.eventEmitter,
		Documents:    documents,
		Generator:    generator,
		Pricing:      pricing,
		ContextChars: cfg.LLM.ContextChars,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create content service: %w", err)
	}
	app.chatService = service.NewChatService(db, projectStore, chatStore, profileStore,
		app.userService, app.eventEmitter, pricing, log)

	contentFactory, err := task.NewContentTaskFactory(&task.ContentPipeline{
		Contents:     contentStore,
		Projects:     projectStore,
		Documents:    documents,
		Generator:    generator,
		Speech:       speech,
		Artifacts:    objects,
		Finalizer:    app.contentService,
		ContextChars: cfg.LLM.ContextChars,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create content task factory: %w", err)
	}
	chatFactory, err := task.NewChatTaskFactory(&task.ChatPipeline{
		Projects:     projectStore,
		Documents:    documents,
		Generator:    generator,
		Replies:      app.chatService,
		ContextChars: cfg.LLM.ChatContextChars,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat task factory: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(taskStore, task.TaskRunnerConfig{
		WorkerCount:            cfg.Task.WorkerCount,
		QueueSize:              cfg.Task.QueueSize,
		StuckTaskAge:           time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		StuckTaskCheckInterval: time.Duration(cfg.Task.StuckTaskCheckIntervalSec) * time.Second,
	}, log)
	app.taskRunner.Register(task.TaskTypeContentGeneration, contentFactory.Restorer(task.TaskTypeContentGeneration))
	app.taskRunner.Register(task.TaskTypePodcastAudio, contentFactory.Restorer(task.TaskTypePodcastAudio))
	app.taskRunner.Register(task.TaskTypeChatReply, chatFactory.Restore)

	handler := task.NewTaskFactoryEventHandler(app.taskRunner, log)
	handler.Register(task.TaskTypeContentGeneration, contentFactory.ContentEventBuilder)
	handler.Register(task.TaskTypePodcastAudio, contentFactory.ContentEventBuilder)
	handler.Register(task.TaskTypeChatReply, chatFactory.ChatEventBuilder)
	app.eventEmitter.RegisterHandler(handler)

	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	log.Info("application initialized")
	return app, nil
}

// Run serves HTTP until ctx is cancelled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the workers and closes the database.
func (app *application) cleanup(ctx context.Context) {
	if app.taskRunner != nil {
		app.taskRunner.Stop(ctx)
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
