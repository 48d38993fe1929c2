package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"catalog-rest-api/internal/bootstrap"
	"catalog-rest-api/internal/cache"
	"catalog-rest-api/internal/config"
	"catalog-rest-api/internal/handler"
	"catalog-rest-api/internal/repository"
	"catalog-rest-api/internal/router"
	"catalog-rest-api/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting catalog API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize the durable store based on config
	var store repository.Store
	var err error
	switch cfg.Database.Type {
	case "mysql":
		store, err = repository.NewMySQLStore(cfg.Database.MySQLDSN(), cfg.App.Workers)
	case "sqlite":
		store, err = repository.NewSQLiteStore(cfg.Database.Path)
	default: // postgres
		store, err = repository.NewPostgresStore(cfg.Database.PostgresDSN(), cfg.App.Workers)
	}
	if err != nil {
		log.Fatalf("Failed to initialize store (%s): %v", cfg.Database.Type, err)
	}
	defer store.Close()
	log.Printf("%s store initialized", cfg.Database.Type)

	// Bootstrap the schema before serving any traffic. This must succeed:
	// a worker that cannot verify the schema never opens its listener.
	bootstrapper := bootstrap.New(store, store, bootstrap.Options{})
	if err := bootstrapper.Run(context.Background()); err != nil {
		log.Fatalf("Schema bootstrap failed: %v", err)
	}

	// Initialize the cache client. Unlike the store this is best-effort:
	// an unreachable cache degrades every read to store latency but must
	// never prevent startup or fail requests.
	var cacheClient cache.Cache
	redisCache, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Address(),
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Workers:  cfg.App.Workers,
	})
	if err != nil {
		log.Printf("Warning: cache unavailable, running store-only: %v", err)
	} else {
		cacheClient = redisCache
		defer redisCache.Close()
	}

	// Initialize services and handlers
	itemService := service.NewItemService(store.Items(), cacheClient, cfg.Cache.TTL)
	noteService := service.NewNoteService(store.Notes(), cacheClient, cfg.Cache.TTL)

	r := router.New(router.Config{
		Handler:     handler.New(cfg.App.Version, bootstrapper.Verified),
		ItemHandler: handler.NewItemHandler(itemService),
		NoteHandler: handler.NewNoteHandler(noteService),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
