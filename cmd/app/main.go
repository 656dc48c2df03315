package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/oxleyhq/forager/internal/api"
	"github.com/oxleyhq/forager/internal/browser"
	"github.com/oxleyhq/forager/internal/crawler"
	"github.com/oxleyhq/forager/internal/db"
	"github.com/oxleyhq/forager/internal/emails"
	"github.com/oxleyhq/forager/internal/jobs"
	"github.com/oxleyhq/forager/internal/results"
	"github.com/oxleyhq/forager/internal/signals"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Config holds the application configuration loaded from environment variables
type Config struct {
	Port        string // HTTP port to listen on
	Env         string // Environment (development/production)
	SentryDSN   string // Sentry DSN for error tracking
	LogLevel    string // Log level (debug, info, warn, error)
	RedisAddr   string // Redis address for cross-process stop signals
	ResultsPath string // Path of the JSON results file
}

func main() {
	// Load .env files - .env.local takes priority for development
	godotenv.Load(".env.local", ".env")

	config := &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Env:         getEnvWithDefault("APP_ENV", "development"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		RedisAddr:   getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		ResultsPath: getEnvWithDefault("RESULTS_PATH", "results.json"),
	}

	setupLogging(config)

	// Initialise Sentry for error tracking and performance monitoring
	if config.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.SentryDSN,
			Environment: config.Env,
			TracesSampleRate: func() float64 {
				if config.Env == "production" {
					return 0.1 // 10% sampling in production
				}
				return 1.0 // 100% sampling in development
			}(),
			AttachStacktrace: true,
			Debug:            config.Env == "development",
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialise Sentry")
		} else {
			log.Info().Str("environment", config.Env).Msg("Sentry initialised successfully")
			// Ensure Sentry flushes before application exits
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Warn().Msg("Sentry DSN not configured, error tracking disabled")
	}

	// Connect to PostgreSQL
	pgDB, err := db.InitFromEnv()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL database")
	}
	defer pgDB.Close()

	log.Info().Msg("Connected to PostgreSQL database")

	// Redis-backed stop signals, shared across processes
	stops := signals.NewStore(config.RedisAddr, "forager:", 24*time.Hour)
	defer stops.Close()

	// Browser pool for page rendering
	browserConfig := browser.DefaultConfig()
	browserConfig.Headless = getEnvWithDefault("HEADLESS", "true") == "true"
	browserConfig.ProxyURL = os.Getenv("PROXY_URL")
	if sessions := getEnvInt("MAX_SESSIONS", browserConfig.MaxSessions); sessions > 0 {
		browserConfig.MaxSessions = sessions
	}
	browsers := browser.NewManager(browserConfig)
	defer browsers.Close()

	log.Info().
		Bool("headless", browserConfig.Headless).
		Int("max_sessions", browserConfig.MaxSessions).
		Msg("Browser pool configured")

	provider := jobs.SessionProviderFunc(func(ctx context.Context) (jobs.Session, error) {
		session, err := browsers.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	})

	resolver := crawler.NewResolver(crawler.DefaultConfig())
	extractor := jobs.NewMatcherExtractor(emails.NewMatcher())

	visitDelay := time.Duration(getEnvInt("VISIT_DELAY_MS", 1000)) * time.Millisecond
	coordinator := jobs.NewCoordinator(provider, resolver, extractor, pgDB, stops, jobs.CoordinatorConfig{
		VisitDelay: visitDelay,
	})

	resultsWriter := results.NewWriter(config.ResultsPath)
	jobsManager := jobs.NewJobManager(coordinator, pgDB, stops, resultsWriter, pgDB)

	// Create a rate limiter
	limiter := newRateLimiter()

	// Create API handler with dependencies
	apiHandler := api.NewHandler(jobsManager, pgDB)

	// Create HTTP multiplexer
	mux := http.NewServeMux()

	// Setup API routes
	apiHandler.SetupRoutes(mux)

	// Create middleware stack with rate limiting
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		if !limiter.getLimiter(ip).Allow() {
			api.WriteErrorMessage(w, r, "Too many requests", http.StatusTooManyRequests, api.ErrCodeRateLimit)
			return
		}
		mux.ServeHTTP(w, r)
	})

	// Add middleware in reverse order (outermost first)
	handler = api.LoggingMiddleware(handler)
	handler = api.RequestIDMiddleware(handler)
	handler = api.SecurityHeadersMiddleware(handler)
	handler = api.CORSMiddleware(handler)

	// Create a new HTTP server
	server := &http.Server{
		Addr:    ":" + config.Port,
		Handler: handler,
	}

	// Channel to listen for termination signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal when the server has shut down
	done := make(chan struct{})

	go func() {
		<-stop
		log.Info().Msg("Shutting down server...")

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

		defer cancel()

		// Stop accepting new requests
		if err := server.Shutdown(ctx); err != nil {
			sentry.CaptureException(err)
			log.Error().Err(err).Msg("Server forced to shutdown")
		}

		close(done)
	}()

	// Start the server
	log.Info().Str("port", config.Port).Msg("Starting server")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("Server error")
	}

	<-done // Wait for the shutdown process to complete
	log.Info().Msg("Server stopped")
}

// getEnvWithDefault retrieves an environment variable or returns a default value if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns a default value if not set or invalid
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		log.Warn().
			Str("key", key).
			Str("value", value).
			Int("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
		return defaultValue
	}

	return result
}

// setupLogging configures the logging system
func setupLogging(config *Config) {
	// Configure log level
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	// Use console writer in development
	if config.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		// In production, use a JSON format that works well with hosted log drains
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Str("service", "forager").
			Logger()
	}
}

// RateLimiter represents a rate limiting system based on client IP addresses
type RateLimiter struct {
	limits   map[string]*IPRateLimiter
	mu       sync.Mutex
	rate     rate.Limit
	capacity int
}

// IPRateLimiter wraps a token bucket rate limiter specific to an IP address
type IPRateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter creates a new rate limiter with default settings
func newRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits:   make(map[string]*IPRateLimiter),
		rate:     rate.Limit(20), // 20 requests per second
		capacity: 10,             // 10 burst capacity
	}
}

// getLimiter returns the rate limiter for a specific IP address
func (rl *RateLimiter) getLimiter(ip string) *IPRateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limits[ip]
	if !exists {
		limiter = &IPRateLimiter{
			limiter: rate.NewLimiter(rl.rate, rl.capacity),
		}
		rl.limits[ip] = limiter
	}

	return limiter
}

// Allow checks if a request from this IP should be allowed
func (ipl *IPRateLimiter) Allow() bool {
	return ipl.limiter.Allow()
}

// getClientIP extracts the client's IP address from a request
func getClientIP(r *http.Request) string {
	// Check for X-Forwarded-For header first (for clients behind proxies)
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// X-Forwarded-For might contain multiple IPs, take the first one
		ips := strings.Split(ip, ",")
		ip = strings.TrimSpace(ips[0])
		return ip
	}

	// If no X-Forwarded-For, use RemoteAddr
	ip, _, _ = net.SplitHostPort(r.RemoteAddr)
	return ip
}
