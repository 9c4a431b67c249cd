package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"worksheet-backend/internal/catalog"
	"worksheet-backend/internal/config"
	"worksheet-backend/internal/database"
	"worksheet-backend/internal/export"
	"worksheet-backend/internal/flow"
	"worksheet-backend/internal/handlers"
	"worksheet-backend/internal/middleware"
	"worksheet-backend/internal/repository"
	"worksheet-backend/internal/router"
	"worksheet-backend/internal/services"
	"worksheet-backend/internal/session"
	"worksheet-backend/internal/usage"
	"worksheet-backend/internal/websocket"
	"worksheet-backend/internal/worker"
	"worksheet-backend/migrations"
)

func main() {
	log.Println("🚀 Starting Worksheet Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Load Curriculum Profile ────
	cat := catalog.Default()
	if cfg.ProfilePath != "" {
		loaded, err := catalog.Load(cfg.ProfilePath)
		if err != nil {
			log.Fatalf("✗ Curriculum profile failed to load: %v", err)
		}
		cat = loaded
	}
	dailyLimit := cfg.ResolveDailyLimit(cat.DailyLimit)
	log.Printf("✓ Curriculum loaded (%s, %d grades, daily limit %d)", cat.Board, len(cat.Grades), dailyLimit)

	// ──── Step 3: Initialize Redis Clients (optional) ────
	var quotaStore usage.Store = usage.NewMemoryStore()
	var pubsubClient *redis.Client
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		quotaStore = usage.NewRedisStore(redisClients.Quota)
		pubsubClient = redisClients.PubSub
		log.Println("✓ Redis connected")
	} else {
		log.Println("✓ Redis not configured, using in-memory quota store")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("✗ %v", err)
	}
	limiter := usage.NewLimiter(quotaStore, dailyLimit, usage.WithLocation(loc))

	// ──── Step 4: Initialize PostgreSQL History (optional) ────
	var (
		history     flow.HistoryRecorder
		historyList handlers.HistoryLister
		historyPool *worker.Pool
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		var migrationFS fs.FS = migrations.FS
		if cfg.MigrationsDir != "" {
			migrationFS = os.DirFS(cfg.MigrationsDir)
		}
		if err := database.RunMigrations(context.Background(), pool, migrationFS); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")

		generationRepo := repository.NewGenerationRepo(pool)
		historyPool = worker.NewPool(generationRepo, 2, 256)
		historyPool.Start()
		history = historyPool
		historyList = generationRepo
		log.Println("✓ History writer started (2 goroutines)")
	} else {
		log.Println("✓ PostgreSQL not configured, generation history disabled")
	}

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiTemperature,
		cfg.GeminiConcurrentReqs,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", geminiService.Model())

	tmpl, err := services.LoadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		log.Fatalf("✗ %v", err)
	}
	prompts, err := services.NewPromptBuilder(services.PromptConfig{
		Board:    cat.Board,
		Template: tmpl,
		Guidance: cat.DifficultyGuidance,
	})
	if err != nil {
		log.Fatalf("✗ Prompt setup failed: %v", err)
	}
	worksheetService := services.NewWorksheetService(geminiService, prompts)

	// ──── Step 6: Sessions, Status Hub, Flow ────
	clientAuth := middleware.NewClientAuth(cfg.JWTSecret, cfg.ClientTokenTTL)
	sessions := session.NewStore(cfg.SessionTTL)
	wsHub := websocket.NewHub(pubsubClient, clientAuth)
	log.Println("✓ WebSocket hub started")

	exporters := export.DefaultRegistry()
	if cfg.PDFFontPath != "" {
		font, err := export.LoadPDFFont(cfg.PDFFontPath, cfg.PDFFontBoldPath)
		if err != nil {
			log.Fatalf("✗ %v", err)
		}
		exporters = export.NewRegistry(export.NewPDFExporterWithFont(font), export.NewXLSXExporter())
		log.Printf("✓ PDF font loaded from %s", cfg.PDFFontPath)
	}
	ctrl := flow.NewController(cat, limiter, worksheetService, sessions, flow.Options{
		QuestionCounts:       cfg.QuestionCounts,
		DefaultQuestionCount: cfg.DefaultQuestionCount,
		Exporters:            exporters,
		History:              history,
		Status:               wsHub,
	})
	log.Printf("✓ Export formats: %v", exporters.Formats())

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		clientAuth,
		handlers.NewClientHandler(clientAuth),
		handlers.NewCatalogHandler(ctrl, dailyLimit),
		handlers.NewSessionHandler(ctrl),
		handlers.NewHistoryHandler(historyList),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // generation waits on the provider
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		if historyPool != nil {
			historyPool.Stop()
		}
		sessions.Close()
	}()

	log.Printf("✓ Worksheet Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
