package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wagerboardAPI/handlers"
	"wagerboardAPI/internal/config"
	"wagerboardAPI/internal/sites"
	"wagerboardAPI/middleware"
	"wagerboardAPI/services"

	_ "net/http/pprof"
)

var (
	cfg                config.Config
	dbPool             *pgxpool.Pool
	leaderboardService *services.LeaderboardService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg = config.Load()

	// Caching is optional: without a DATABASE_URL every request is a live
	// fetch, which is slower but fully functional.
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, running without snapshot caching")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to parse database URL:", err)
		}

		poolConfig.MaxConns = 10
		poolConfig.MinConns = 2
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = time.Minute

		dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Fatal("Failed to create connection pool:", err)
		}

		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		log.Println("Successfully connected to Postgres")
	}

	cacheService := services.NewCacheService(dbPool)
	if dbPool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := cacheService.InitSchema(ctx); err != nil {
			// reads and writes degrade to misses, keep going
			log.Printf("Warning: could not init cache schema: %v", err)
		}
	}

	registry := sites.NewRegistry()
	registry.Register(sites.NewClashFetcher(cfg.Sites[config.SiteClash]))
	registry.Register(sites.NewBsiteFetcher(cfg.Sites[config.SiteBsite]))
	registry.Register(sites.NewCSBattleFetcher(cfg.Sites[config.SiteCSBattle]))
	registry.Register(sites.NewSkinfansFetcher(cfg.Sites[config.SiteSkinfans]))

	leaderboardService = services.NewLeaderboardService(registry, cacheService)

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
	}()

	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if dbPool == nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status": "healthy", "service": "wagerboard-api", "cache": "disabled"}`))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "wagerboard-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", leaderboardHandler.Root).Methods("GET")
	api.HandleFunc("/leaderboard/refresh/{siteID}", leaderboardHandler.RefreshLeaderboard).Methods("POST")
	api.HandleFunc("/leaderboards", leaderboardHandler.GetAllLeaderboards).Methods("GET")
	api.HandleFunc("/leaderboard/{siteID}", leaderboardHandler.GetLeaderboard).Methods("GET")

	warmer := leaderboardService.StartCacheWarmer(cfg.WarmIntervalMinutes)

	// The API is consumed by third-party frontends, so CORS is wide open.
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	server := http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     corsHandler(r),
		ReadTimeout: 5 * time.Second,
		// must outlast the aggregate endpoint's worst case of four
		// sequential 30s upstream calls
		WriteTimeout: 160 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	if warmer != nil {
		_ = warmer.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
