package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"signal-advisor/config"
	"signal-advisor/internal/engine"
	"signal-advisor/internal/events"
)

// RateLimiter provides simple in-memory rate limiting per client.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key.
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

// Server exposes the engine over HTTP and WebSocket.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	engine      *engine.Engine
	bus         *events.Bus
	hub         *WSHub
	rateLimiter *RateLimiter
	cfg         config.ServerConfig
	log         zerolog.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg config.ServerConfig, eng *engine.Engine, bus *events.Bus, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router:      router,
		engine:      eng,
		bus:         bus,
		hub:         NewWSHub(log),
		rateLimiter: NewRateLimiter(120, time.Minute),
		cfg:         cfg,
		log:         log.With().Str("component", "api").Logger(),
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/api/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	signals := s.router.Group("/api/signals")
	signals.Use(s.rateLimit())
	{
		signals.POST("/generate", s.handleGenerate)
		signals.GET("/active", s.handleActive)
		signals.GET("/history", s.handleHistory)
		signals.PUT("/:id/status", s.handleUpdateStatus)
	}
}

// rateLimit rejects clients that exceed the per-IP request quota.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Start runs the WebSocket hub, bridges bus events to it, and serves HTTP.
// Blocks until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run()

	if s.bus != nil {
		go s.bridgeEvents(ctx)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// bridgeEvents forwards bus events to connected WebSocket clients.
func (s *Server) bridgeEvents(ctx context.Context) {
	ch := s.bus.Subscribe(events.SignalGenerated, events.SignalStatusChanged, events.ScanComplete)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			s.hub.BroadcastEvent(event)
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
