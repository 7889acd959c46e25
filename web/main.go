package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/logger"
	"github.com/afrinbhuiyan/sales-dashboard/internal/pkg/metrics"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/config"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/handlers"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/middleware"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/render"
	"github.com/afrinbhuiyan/sales-dashboard/web/internal/session"
)

// setupWebLogging configures the global logger for the web service
func setupWebLogging(logLevel, logFormat string) error {
	cfg := logger.Config{
		Level:       logger.ParseLevel(logLevel),
		LogToStderr: true, // Web service always logs to stderr
		Format:      logFormat,
	}

	globalLogger, err := logger.SetupLogger(cfg)
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)
	return nil
}

// sessionSecret decodes the configured key, falling back to a random one
func sessionSecret(configured string, log *slog.Logger) ([]byte, error) {
	if configured != "" {
		secret, err := base64.StdEncoding.DecodeString(configured)
		if err == nil {
			log.Info("using configured session secret (preferences persist across restarts)")
			return secret, nil
		}
		log.Warn("failed to decode session secret, generating a random one", slog.Any("error", err))
	} else {
		log.Warn("no session secret configured, generating random one (preferences won't persist)")
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return secret, nil
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging (must be done before any logging calls)
	if err = setupWebLogging(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to setup logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("web service stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.WebServerConfig) error {
	log := logger.WithComponent(slog.Default(), "web")
	log.Info("starting salesdash web service", slog.String("version", render.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	templates, err := render.LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	render.LogTemplateNames(templates, log)

	secret, err := sessionSecret(cfg.Session.Secret, log)
	if err != nil {
		return err
	}
	sessionMgr := session.NewManager(secret, session.Options{
		MaxAgeDays: cfg.Session.MaxAgeDays,
		Secure:     cfg.Session.Secure,
	})

	store, err := tokenstore.Open(ctx, cfg.TokenStore)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}
	log.Info("token store ready", slog.String("backend", cfg.TokenStore.Backend))

	opts := cfg.API.ClientOptions()
	opts.Logger = slog.Default()
	opts.HTTPClient = &http.Client{Transport: metrics.NewAPIMetricsTransport(nil)}
	client, err := salesapi.NewClient(store, opts)
	if err != nil {
		return fmt.Errorf("failed to create sales client: %w", err)
	}

	h := handlers.New(client, sessionMgr, templates, handlers.Options{
		ChartLimit: cfg.Chart.Limit,
		Notice:     cfg.Notice,
	}, slog.Default())

	limiter := middleware.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: createRouter(h, limiter, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("address", server.Addr), slog.String("sales_api", client.BaseURL()))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// createRouter sets up the HTTP router with all routes and middleware
func createRouter(h *handlers.Handler, limiter *rate.Limiter, log *slog.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.LogRequest(log))

	// Static files with version path: /static/{version}/...
	static := http.FileServer(http.FS(render.Static()))
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Remove version from path (format: {version}/file.ext)
		parts := strings.SplitN(r.URL.Path, "/", 2)
		if len(parts) == 2 {
			r.URL.Path = "/" + parts[1]
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		static.ServeHTTP(w, r)
	}))).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":%q}`, render.Version)
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Every route that reaches the sales API shares one limiter
	limit := middleware.RateLimit(limiter, log)

	router.Handle("/", limit(http.HandlerFunc(h.Dashboard))).Methods("GET")
	router.HandleFunc("/filters/reset", h.ResetFilters).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(limit)
	api.HandleFunc("/sales", h.SalesPage).Methods("GET")
	api.HandleFunc("/chart", h.ChartData).Methods("GET")

	return router
}
