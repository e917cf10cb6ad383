package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/quadhq/quad/internal/auth"
	"github.com/quadhq/quad/internal/config"
	"github.com/quadhq/quad/internal/domain/services"
	"github.com/quadhq/quad/internal/infrastructure/database/postgres"
	"github.com/quadhq/quad/internal/pkg/idgen"
	"github.com/quadhq/quad/internal/pkg/logger"
	"github.com/quadhq/quad/migrations"
	"github.com/quadhq/quad/server/internal/handlers"
	"github.com/quadhq/quad/server/internal/middleware"
	"github.com/quadhq/quad/server/internal/session"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		forceVersion  int
		configPath    string
		logLevel      string
		logFile       string
		logToStderr   bool
		alsoLogStderr bool
		logFormat     string
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "QUAD web server",
		Long:  "The web and API server for the QUAD platform",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return setupServerLogging(logLevel, logFile, logToStderr, alsoLogStderr, logFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath, forceVersion)
		},
	}

	cmd.Flags().IntVar(&forceVersion, "force-migration", -1, "Force migration version (use to fix dirty migration state)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (optional)")

	// Add logging flags
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (if specified, logs to file instead of stderr)")
	cmd.Flags().BoolVar(&logToStderr, "logtostderr", false, "Log to stderr (default behavior unless --log-file specified)")
	cmd.Flags().BoolVar(&alsoLogStderr, "alsologtostderr", false, "Log to both file and stderr")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format (text, json)")

	return cmd
}

// setupServerLogging configures the global logger for the server
func setupServerLogging(logLevel, logFile string, logToStderr, alsoLogStderr bool, logFormat string) error {
	// Default to stderr logging unless file is specified
	if logFile == "" {
		logToStderr = true
	}

	cfg := logger.Config{
		Level:         logger.ParseLevel(logLevel),
		LogFile:       logFile,
		LogToStderr:   logToStderr,
		AlsoLogStderr: alsoLogStderr,
		Format:        logFormat,
	}

	globalLogger, err := logger.SetupLogger(cfg)
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)

	return nil
}

func runServer(configPath string, forceVersion int) error {
	log := slog.Default().With("component", "server")
	log.Info("Starting server initialization")

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize Snowflake ID generator with this instance's node ID
	if err := idgen.Initialize(cfg.Server.NodeID); err != nil {
		return fmt.Errorf("failed to initialize ID generator: %w", err)
	}

	log.Info("Loaded OAuth providers", "count", len(cfg.Auth.Providers))
	for _, p := range cfg.Auth.Providers {
		log.Info("OAuth provider configured", "name", p.Name, "client_id", p.ClientID)
	}

	providers, err := auth.NewRegistry(cfg.Auth.Providers, cfg.Server.RedirectURI())
	if err != nil {
		return fmt.Errorf("failed to initialize OAuth providers: %w", err)
	}

	log.Info("Initializing PostgreSQL database",
		"user", cfg.Database.Postgres.User,
		"host", cfg.Database.Postgres.Host,
		"database", cfg.Database.Postgres.Database)

	connString := cfg.Database.Postgres.ConnectionString()

	// Connect to PostgreSQL with retries (for Kubernetes startup)
	var pgConn *postgres.Connection
	maxRetries := 10
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		var err error
		pgConn, err = postgres.NewConnection(connString)
		if err == nil {
			log.Info("Successfully connected to PostgreSQL")
			break
		}

		if i < maxRetries-1 {
			log.Warn("Failed to connect to PostgreSQL",
				"attempt", i+1,
				"max_retries", maxRetries,
				"error", err,
				"retry_delay", retryDelay)
			time.Sleep(retryDelay)
			retryDelay *= 2 // Exponential backoff
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}
		} else {
			return fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", maxRetries, err)
		}
	}
	defer pgConn.Close()

	// Handle force migration if requested
	if forceVersion >= 0 {
		log.Info("Force setting migration version", "version", forceVersion)
		if err := pgConn.ForceMigrationVersion(migrations.FS, forceVersion); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
		log.Info("Migration version forced, exiting", "version", forceVersion)
		return nil
	}

	// Run migrations
	if err := pgConn.RunMigrations(migrations.FS); err != nil {
		return fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
	}

	repos := postgres.NewRepositories(pgConn)

	// Initialize services
	if cfg.Auth.JWT.SigningKey == "" {
		return fmt.Errorf("JWT signing key not configured")
	}
	admissionService := services.NewAdmissionService(repos.Accounts, repos.Tenants, cfg.Auth.SeatLimit)
	tokenService := services.NewTokenService(repos.Sessions, cfg.Auth.JWT.SigningKey, cfg.Auth.JWT.Lifetime)
	intakeService := services.NewIntakeService(repos.Tenants, repos.Integrations)
	profileService := services.NewProfileService(repos.Accounts, repos.Tenants, repos.Integrations)

	// Periodically purge expired session rows
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := tokenService.CleanupExpired(context.Background(), 24*time.Hour); err != nil {
				log.Error("session cleanup failed", "error", err)
			}
		}
	}()

	sessionMgr := session.NewManager(sessionSecret(cfg, log))
	authMw := middleware.NewAuthMiddleware(sessionMgr, tokenService)
	h := handlers.New(admissionService, tokenService, intakeService, profileService, providers, sessionMgr)

	router := createRouter(h, authMw, pgConn)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting HTTP server", "address", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}

	return nil
}

// sessionSecret resolves the cookie signing key.
// Priority: env var > config file > random.
func sessionSecret(cfg *config.Config, log *slog.Logger) []byte {
	if envSecret := os.Getenv("SESSION_SECRET"); envSecret != "" {
		secret, err := base64.StdEncoding.DecodeString(envSecret)
		if err == nil {
			log.Info("using session secret from environment")
			return secret
		}
		log.Warn("failed to decode SESSION_SECRET env var, trying config", "error", err)
	}

	if cfg.Session.Secret != "" {
		secret, err := base64.StdEncoding.DecodeString(cfg.Session.Secret)
		if err == nil {
			log.Info("using session secret from config")
			return secret
		}
		log.Warn("failed to decode session secret from config", "error", err)
	}

	log.Warn("no session secret configured, generating random one (sessions won't persist)")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Error("failed to generate session secret", "error", err)
		os.Exit(1)
	}
	return secret
}

// createRouter sets up the HTTP router with all routes and middleware
func createRouter(h *handlers.Handler, authMw *middleware.AuthMiddleware, pgConn *postgres.Connection) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pgConn.HealthCheck(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	// Prometheus metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public routes
	router.HandleFunc("/", h.Home).Methods("GET")
	router.HandleFunc("/login", h.Login).Methods("GET")
	router.HandleFunc("/auth/callback", h.AuthCallback).Methods("GET")
	router.HandleFunc("/logout", h.Logout).Methods("GET", "POST")
	router.HandleFunc("/upgrade", h.Upgrade).Methods("GET")
	router.HandleFunc("/signup", h.Signup).Methods("GET")
	router.HandleFunc("/api/auth/request-access", h.RequestAccess).Methods("POST")

	// Authenticated API routes
	router.Handle("/api/company/profile", authMw.RequireAuth(http.HandlerFunc(h.CompanyProfile))).Methods("GET")

	return middleware.LogRequest(router)
}
