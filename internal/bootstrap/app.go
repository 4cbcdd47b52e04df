package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "tutorial-backend/internal/auth"
	"tutorial-backend/internal/jobs"
	"tutorial-backend/internal/llm"
	openai "tutorial-backend/internal/llm/openai"
	"tutorial-backend/internal/pipeline"
	"tutorial-backend/internal/queue"
	"tutorial-backend/internal/shared/config"
	"tutorial-backend/internal/shared/server"
	"tutorial-backend/internal/shared/storage/db"
	"tutorial-backend/internal/shared/storage/object"
	localstore "tutorial-backend/internal/shared/storage/object/local"
	s3store "tutorial-backend/internal/shared/storage/object/s3"
	"tutorial-backend/internal/users"
)

// App holds shared dependencies for the API and worker entrypoints.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	Queue        queue.Client
	JobsRepo     jobs.Repo
	ChapterCache pipeline.ChapterCache
	UsersRepo    users.Repo
	JobsService  *jobs.Service
	JobProcessor JobProcessor
	UsersService *users.Service
	JobsHandler  *jobs.Handler
	UsersHandler *users.Handler
	GoogleAuth   *googleauth.GoogleService
}

// JobProcessor allows callers to override job processing for tests.
type JobProcessor interface {
	Run(ctx context.Context, jobID string) error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       app.Config,
		JobsHandler:  app.JobsHandler,
		UsersHandler: app.UsersHandler,
		GoogleAuth:   app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("TB_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var jobsRepo jobs.Repo
	var chapterCache pipeline.ChapterCache
	var userRepo users.Repo

	if app.DB != nil {
		jobsRepo = &jobs.PGRepo{DB: app.DB}
		chapterCache = &jobs.PGChapterCache{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		jobsRepo = jobs.NewMemoryRepo()
		chapterCache = pipeline.NewMemoryChapterCache()
		userRepo = users.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			return err
		}
		llmClient = openaiClient
	}

	var enqueuer jobs.Enqueuer
	if app.Queue != nil {
		enqueuer = &queue.JobEnqueuer{Client: app.Queue}
	}

	jobsSvc := &jobs.Service{
		Repo:          jobsRepo,
		Cache:         chapterCache,
		Store:         app.Store,
		LLM:           llmClient,
		Queue:         enqueuer,
		Provider:      app.Config.LLMProvider,
		Model:         app.Config.LLMModel,
		PromptVersion: app.Config.PromptVersion,
	}

	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.JobsRepo = jobsRepo
	app.ChapterCache = chapterCache
	app.UsersRepo = userRepo
	app.JobsService = jobsSvc
	app.JobProcessor = jobsSvc
	app.UsersService = userSvc
	app.JobsHandler = jobs.NewHandler(jobsSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	return nil
}
