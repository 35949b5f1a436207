// Package api exposes the signal engine over HTTP: bar ingestion,
// on-demand evaluation, structure introspection, the persisted signal
// feed, and a websocket fan-out for live events.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"smc-signal-engine/config"
	"smc-signal-engine/internal/cache"
	"smc-signal-engine/internal/database"
	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/events"
	"smc-signal-engine/internal/logging"
)

// RateLimiter provides simple in-memory rate limiting per client key.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	engine      *engine.Engine
	repo        *database.Repository
	cache       *cache.CacheService
	eventBus    *events.EventBus
	hub         *WSHub
	rateLimiter *RateLimiter
	log         *logging.Logger
	cfg         config.ServerConfig
}

// NewServer creates the API server. repo and cacheService may be nil
// when the backing store is not configured; the affected endpoints then
// answer 503.
func NewServer(
	cfg config.ServerConfig,
	eng *engine.Engine,
	repo *database.Repository,
	cacheService *cache.CacheService,
	eventBus *events.EventBus,
	log *logging.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" || cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:      router,
		engine:      eng,
		repo:        repo,
		cache:       cacheService,
		eventBus:    eventBus,
		hub:         NewWSHub(log),
		rateLimiter: NewRateLimiter(120, time.Minute),
		log:         log.WithComponent("api"),
		cfg:         cfg,
	}

	// Live events reach websocket clients through the bus.
	if eventBus != nil {
		for _, t := range []events.EventType{
			events.EventSignalGenerated,
			events.EventStructureBreak,
			events.EventPriceUpdate,
			events.EventScanCompleted,
		} {
			eventBus.Subscribe(t, s.hub.BroadcastEvent)
		}
	}

	s.setupRoutes()
	return s
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	v1.Use(s.rateLimitMiddleware())
	{
		v1.POST("/instruments/:symbol/bars", s.handleIngestBars)
		v1.POST("/instruments/:symbol/evaluate", s.handleEvaluate)
		v1.GET("/instruments/:symbol/structures", s.handleStructures)
		v1.GET("/instruments/:symbol/signals/latest", s.handleLatestSignal)
		v1.GET("/signals", s.handleRecentSignals)
	}
}

// Start runs the hub and the HTTP listener. Blocks until the listener
// stops.
func (s *Server) Start() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	s.log.Info("API server listening", "address", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
