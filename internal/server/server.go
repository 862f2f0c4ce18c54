// Package server is the inbound webhook receiver: a gin HTTP server that
// validates UniFi Protect payloads and hands them to the dispatcher.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/btholt/discord-unifi/internal/config"
)

const maxBodyBytes = 1 << 20 // 1 MiB; alarm payloads are a few KB

const secretHeader = "X-Bridge-Secret"

// dispatcher is what the receiver needs from the bridge.
type dispatcher interface {
	Dispatch(ctx context.Context, raw map[string]any) error
}

type Server struct {
	cfg      config.ServerConfig
	dispatch dispatcher
	log      zerolog.Logger
	engine   *gin.Engine
	metrics  *metrics
}

func New(cfg config.ServerConfig, d dispatcher, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		dispatch: d,
		log:      log,
		metrics:  newMetrics(),
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		requestID(),
		accessLog(log),
		s.metrics.countRequests(),
		cors(),
		rateLimit(newClientLimiter(cfg.RateLimitRPS, cfg.RateBurst)),
		bodyLimit(maxBodyBytes),
	)

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", s.metrics.handler())
	engine.POST("/unifi-webhook", s.handleWebhook)
	engine.POST("/", s.handleWebhook)

	s.engine = engine
	return s
}

// Handler exposes the engine for tests and for embedding in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", addr).Msg("webhook receiver listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleWebhook validates the payload before the core is ever invoked:
// a JSON object carrying a timestamp plus either a flat eventType or a
// nested alarm object. A configured shared secret must match either the
// payload field or the header.
func (s *Server) handleWebhook(c *gin.Context) {
	var raw map[string]any
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		s.reject(c, http.StatusBadRequest, "payload must be a JSON object")
		return
	}

	if !s.checkSecret(c, raw) {
		s.reject(c, http.StatusUnauthorized, "invalid shared secret")
		return
	}

	if err := validate(raw); err != nil {
		s.reject(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.dispatch.Dispatch(c.Request.Context(), raw); err != nil {
		s.metrics.dispatches.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("dispatch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "dispatch failed: " + err.Error()})
		return
	}

	s.metrics.dispatches.WithLabelValues("delivered").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "delivered"})
}

func (s *Server) reject(c *gin.Context, status int, msg string) {
	s.metrics.dispatches.WithLabelValues("rejected").Inc()
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) checkSecret(c *gin.Context, raw map[string]any) bool {
	if s.cfg.SharedSecret == "" {
		return true
	}
	candidate := c.GetHeader(secretHeader)
	if candidate == "" {
		candidate, _ = raw["secret"].(string)
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.cfg.SharedSecret)) == 1
}

// validate enforces the inbound contract: timestamp plus one of the two
// recognized shapes. Deeper structure problems are the normalizer's to
// absorb, not the receiver's to reject.
func validate(raw map[string]any) error {
	if _, ok := raw["timestamp"]; !ok {
		return errors.New("missing required field: timestamp")
	}

	if t, ok := raw["eventType"].(string); ok && t != "" {
		return nil
	}
	if _, ok := raw["alarm"].(map[string]any); ok {
		return nil
	}
	return errors.New("payload needs either an eventType field or an alarm object")
}
