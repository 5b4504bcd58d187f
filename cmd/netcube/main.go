// Package main is the entry point for the netcube API server.
package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/nuclearlighters/netcube/internal/audit"
	"github.com/nuclearlighters/netcube/internal/config"
	"github.com/nuclearlighters/netcube/internal/database"
	"github.com/nuclearlighters/netcube/internal/engine"
	"github.com/nuclearlighters/netcube/internal/handlers"
	"github.com/nuclearlighters/netcube/internal/inventory"
	"github.com/nuclearlighters/netcube/internal/metrics"
	"github.com/nuclearlighters/netcube/internal/mutator"
	"github.com/nuclearlighters/netcube/internal/osnet"
	"github.com/nuclearlighters/netcube/internal/scanner"
	"github.com/nuclearlighters/netcube/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Get()

	// Setup logging
	setupLogging(cfg.LogLevel)

	log.Info().
		Str("version", cfg.Version).
		Str("listen", cfg.ListenAddr()).
		Msg("Starting netcube API server")

	if cfg.JWTSecret == "" {
		// An ephemeral secret keeps the server usable for development, but
		// every restart invalidates all tokens.
		cfg.JWTSecret = randomSecret()
		log.Warn().Msg("NETCUBE_JWT_SECRET not set, using ephemeral secret")
	}

	// Open database
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := database.MigrateAndSeed(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	if err := ensureAdminUser(db, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin user")
	}

	// Pick the OS backend
	backend := selectBackend(cfg)

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Wire the engine
	auditStore, err := audit.NewStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audit store")
	}
	inv := inventory.New(backend.Query)
	scn := scanner.New(backend.Scan, inv)
	mut := mutator.New(inv, backend.Join, backend.Apply, auditStore, mutator.Options{
		PollInterval: cfg.JoinPollInterval,
		PollTimeout:  cfg.JoinPollTimeout,
	})
	eng := engine.New(inv, scn, mut, m, cfg.OperationTimeout)
	st := store.New(db, eng)

	h := handlers.NewHandlers(cfg, db, eng, st, auditStore)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      corsMiddleware(requestLogger(h.Routes(reg))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OperationTimeout + 45*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.ListenAddr()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := database.Close(db); err != nil {
		log.Warn().Err(err).Msg("Error closing database")
	}

	log.Info().Msg("Server stopped")
}

// setupLogging configures zerolog based on log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// selectBackend returns the native backend, or the simulated one when
// configured (or when the native one is unavailable on this platform).
func selectBackend(cfg *config.Settings) *osnet.Backend {
	if cfg.OSBackend == "fake" {
		log.Warn().Msg("Using simulated network backend")
		return osnet.NewFake().Backend()
	}

	backend, err := osnet.NewPlatformBackend()
	if err != nil {
		log.Warn().Err(err).Msg("Native network backend unavailable, falling back to simulated backend")
		return osnet.NewFake().Backend()
	}
	log.Info().Msg("Using native network backend")
	return backend
}

// ensureAdminUser creates the initial admin account when the users table is
// empty. The password comes from NETCUBE_ADMIN_PASSWORD.
func ensureAdminUser(db *sql.DB, cfg *config.Settings) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.AdminPassword
	if password == "" {
		password = randomSecret()
		log.Warn().Str("password", password).Msg("NETCUBE_ADMIN_PASSWORD not set, generated initial admin password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.Exec("INSERT INTO users (username, password_hash, role) VALUES ('admin', ?, 'admin')", string(hash))
	if err != nil {
		return err
	}
	log.Info().Msg("Created initial admin user")
	return nil
}

func randomSecret() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal().Err(err).Msg("Failed to read random bytes")
	}
	return hex.EncodeToString(buf)
}

// requestLogger is middleware that logs HTTP requests using zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// corsMiddleware adds CORS headers for cross-origin requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
