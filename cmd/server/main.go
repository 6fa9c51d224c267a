package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"catchup/internal/config"
	"catchup/internal/database"
	"catchup/internal/handlers"
	"catchup/internal/jobs"
	"catchup/internal/logging"
	"catchup/internal/middleware"
	"catchup/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting CatchUp Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	metrics := services.InitMetrics()

	providerService := services.NewProviderService(cfg)
	if _, err := os.Stat(cfg.ProvidersFile); err == nil {
		if err := providerService.Reload(cfg.ProvidersFile); err != nil {
			log.Printf("⚠️  Failed to load %s, using env providers: %v", cfg.ProvidersFile, err)
		}
	}

	completionClient := services.NewCompletionClient(providerService, cfg.CompletionRateLimit, metrics)
	userService := services.NewUserService(db)
	sessionState := services.NewSessionStateService()
	triageService := services.NewTriageService(completionClient, userService, metrics)
	speechService := services.NewSpeechService(providerService, metrics)
	planService := services.NewPlanService(completionClient, db, metrics)
	progressService := services.NewProgressService(db)

	// Hot reload providers.json on change
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
	} else {
		defer watcher.Close()
		go func() {
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if filepath.Base(event.Name) == filepath.Base(cfg.ProvidersFile) &&
						(event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create) {
						// Editors often fire several events per save
						time.Sleep(100 * time.Millisecond)
						log.Println("🔄 providers file changed, reloading...")
						if err := providerService.Reload(cfg.ProvidersFile); err != nil {
							log.Printf("❌ Provider reload failed: %v", err)
						} else {
							log.Println("✅ Providers reloaded")
						}
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("⚠️  File watcher error: %v", err)
				}
			}
		}()
		watchDir := filepath.Dir(cfg.ProvidersFile)
		if watchDir == "" {
			watchDir = "."
		}
		if err := watcher.Add(watchDir); err != nil {
			log.Printf("⚠️  Failed to watch %s: %v", watchDir, err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "CatchUp Backend v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	prometheusMiddleware := fiberprometheus.New("catchup")
	prometheusMiddleware.RegisterAt(app, "/metrics")
	app.Use(prometheusMiddleware.Middleware)

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	rateLimitConfig := middleware.LoadRateLimitConfig()
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	generationLimiter := middleware.GenerationRateLimiter(rateLimitConfig)

	healthHandler := handlers.NewHealthHandler(db)
	userHandler := handlers.NewUserHandler(userService, sessionState)
	triageHandler := handlers.NewTriageHandler(triageService, speechService, userService, sessionState)
	planHandler := handlers.NewPlanHandler(planService, userService, sessionState)
	progressHandler := handlers.NewProgressHandler(progressService, userService)
	ttsHandler := handlers.NewTTSHandler(speechService)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/user", userHandler.Create)
	api.Get("/user", userHandler.Get)
	api.Post("/user/reset", userHandler.Reset)
	api.Post("/triage", generationLimiter, triageHandler.Generate)
	api.Get("/triage", triageHandler.Stream)
	api.Post("/plan/generate", generationLimiter, planHandler.Generate)
	api.Get("/progress", progressHandler.Get)
	api.Post("/progress", progressHandler.Toggle)
	api.Post("/tts", generationLimiter, ttsHandler.Synthesize)

	scheduler := jobs.NewJobScheduler()
	scheduler.Register("session-cleanup", jobs.NewSessionCleanupJob(userService, cfg.RetentionDays))
	if err := scheduler.Start(); err != nil {
		log.Printf("⚠️  Failed to start job scheduler: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")
		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️  Scheduler stop error: %v", err)
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 Server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}

	log.Println("👋 Server stopped")
}
