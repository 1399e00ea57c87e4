package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/lesson-planner/api"
	"github.com/sahilchouksey/lesson-planner/config"
	"github.com/sahilchouksey/lesson-planner/database"
	"github.com/sahilchouksey/lesson-planner/handlers"
	"github.com/sahilchouksey/lesson-planner/router"
	"github.com/sahilchouksey/lesson-planner/services"
	"github.com/sahilchouksey/lesson-planner/services/cron"
	"github.com/sahilchouksey/lesson-planner/services/digitalocean"
	"github.com/sahilchouksey/lesson-planner/utils/auth"
	"github.com/sahilchouksey/lesson-planner/utils/cache"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"github.com/sahilchouksey/lesson-planner/utils/middleware"
	"github.com/sahilchouksey/lesson-planner/utils/pdfvalidation"
)

// Container holds every long-lived collaborator built from the environment
type Container struct {
	Env          *config.EnvironmentVariable
	Log          *logger.Logger
	Store        *database.GORMStore
	Indexer      *services.DeepIndexer
	Documents    *services.DocumentService
	Lessons      *services.LessonService
	Synchronizer *services.ProgressSynchronizer
	Selector     *services.ActiveLessonSelector
	Backup       *services.BackupService
	FeedTokens   *auth.FeedTokenManager
	Readiness    []handlers.ReadinessCheck

	closers []func() error
}

// LoadEnvironment loads .env (development only), reads the configuration and
// builds the logger
func LoadEnvironment() (*config.EnvironmentVariable, *logger.Logger, error) {
	envErr := config.LoadENV()

	env, err := config.Get()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(env.GO_ENV)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if envErr != nil {
		// A missing .env is normal when variables come from the shell
		log.Debug("no .env file loaded", "error", envErr)
	}
	return env, log, nil
}

// Build connects to the database and wires the pipeline services
func Build(ctx context.Context, env *config.EnvironmentVariable, log *logger.Logger) (*Container, error) {
	store, err := database.StartGORM(env, log)
	if err != nil {
		return nil, err
	}
	if err := store.Init(); err != nil {
		store.Close()
		return nil, err
	}

	c := &Container{Env: env, Log: log, Store: store}
	c.closers = append(c.closers, store.Close)
	db := store.GetDB()

	loc, err := time.LoadLocation(env.APP_TIMEZONE)
	if err != nil {
		log.Warn("unknown APP_TIMEZONE, using UTC", "timezone", env.APP_TIMEZONE, "error", err)
		loc = time.UTC
	}

	// Redis is optional: without it deep-index progress stays process-local
	var redisCache *cache.RedisCache
	if env.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			log.Warn("failed to connect to redis, continuing without shared progress", "error", err)
			redisCache = nil
		} else {
			c.closers = append(c.closers, redisCache.Close)
		}
	}
	tracker := services.NewIndexProgressTracker(redisCache)

	ocr, err := c.buildOCR(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	extractor := services.NewPageExtractor(services.NewPdftoppmRenderer(env.PDFTOPPM_PATH), ocr, log)

	var generator services.OutlineGenerator
	if env.DO_INFERENCE_API_KEY != "" {
		client := digitalocean.NewInferenceClient(digitalocean.InferenceConfig{
			APIKey:  env.DO_INFERENCE_API_KEY,
			BaseURL: env.DO_INFERENCE_BASE_URL,
			Model:   env.DO_INFERENCE_MODEL,
		})
		c.Readiness = append(c.Readiness, handlers.ReadinessCheck{Name: "inference", Check: client.HealthCheck})
		generator = services.NewInferenceOutlineGenerator(client,
			time.Duration(env.AI_TIMEOUT_SECONDS)*time.Second, env.AI_MAX_RETRIES, log)
	} else {
		log.Info("DO_INFERENCE_API_KEY not set, outlines use pattern parsing only")
	}

	var blobs services.BlobStore = services.NewDatabaseBlobStore(db)
	if env.SpacesConfigured() {
		spaces, err := digitalocean.NewSpacesClientFromEnv(env)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create Spaces client: %w", err)
		}
		blobs = services.NewSpacesBlobStore(spaces)
	}

	c.Indexer = services.NewDeepIndexer(db, tracker, log)
	c.Documents = services.NewDocumentService(db, services.DocumentServiceOptions{
		Opener:   extractor,
		Analyzer: services.NewStructuralAnalyzer(generator, log),
		Indexer:  c.Indexer,
		Tracker:  tracker,
		Blobs:    blobs,
		MaxPages: env.MAX_PAGES,
		Log:      log,
	})
	c.Lessons = services.NewLessonService(db, log)
	c.Synchronizer = services.NewProgressSynchronizer(db, log)
	c.Selector = services.NewActiveLessonSelector(db, loc)
	c.Backup = services.NewBackupService(db, c.Indexer, log)
	c.FeedTokens = auth.NewFeedTokenManager(auth.FeedTokenConfig{Secret: env.FEED_TOKEN_SECRET})

	return c, nil
}

func (c *Container) buildOCR(ctx context.Context) (services.OCREngine, error) {
	switch c.Env.OCR_ENGINE {
	case "vision":
		vision, err := services.NewVisionOCR(ctx, c.Log)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, vision.Close)
		return vision, nil
	case "service", "":
		client := services.NewOCRClient(c.Env.OCR_SERVICE_URL)
		c.Readiness = append(c.Readiness, handlers.ReadinessCheck{Name: "ocr", Check: client.HealthCheck})
		return client, nil
	case "none":
		c.Log.Warn("OCR disabled, scanned pages will yield no text")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported OCR_ENGINE %q", c.Env.OCR_ENGINE)
	}
}

// Close stops deep indexing and releases connections in reverse order of creation
func (c *Container) Close() {
	if c.Indexer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
		if err := c.Indexer.Shutdown(ctx); err != nil {
			c.Log.Warn("deep indexer did not stop in time", "error", err)
		}
		cancel()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Log.Warn("failed to close resource", "error", err)
		}
	}
}

func SetupAndRunServer() error {
	env, log, err := LoadEnvironment()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := Build(ctx, env, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		return err
	}
	defer container.Close()

	// Initialize Cron Manager (only if enabled via environment variable)
	if env.CRON_ENABLED {
		cronManager := cron.NewCronManager(container.Store.GetDB(), container.Documents, log)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warn("failed to start cron jobs", "error", err)
		} else {
			defer cronManager.Stop()
		}
	}

	// Pick up deep indexing interrupted by the previous shutdown right away
	if resumed, err := container.Documents.ResumeIndexing(ctx); err != nil {
		log.Warn("failed to resume deep indexing", "error", err)
	} else if resumed > 0 {
		log.Info("resumed deep indexing", "documents", resumed)
	}

	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), env.MAX_UPLOAD_MB, log)
	app := server.GetEngine()

	// Attach Middleware
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: 300,
		RateLimitWindow:   time.Minute,
	})

	// Setup Routes
	router.SetupRoutes(app, router.Dependencies{
		Store:         container.Store,
		Documents:     container.Documents,
		Lessons:       container.Lessons,
		Synchronizer:  container.Synchronizer,
		Selector:      container.Selector,
		Backup:        container.Backup,
		FeedTokens:    container.FeedTokens,
		UploadLimits:  pdfvalidation.UploadLimits{MaxFileSizeMB: env.MAX_UPLOAD_MB, MaxPages: env.MAX_PAGES},
		PublicBaseURL: env.PUBLIC_BASE_URL,
		Readiness:     container.Readiness,
		Log:           log,
	})

	return server.Run(ctx)
}
