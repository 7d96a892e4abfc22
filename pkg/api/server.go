// Package api implements the contact-mining engine's HTTP boundary (§6): a
// thin, fixed-route surface over the aggregator's relational store and the
// background import pipeline.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/importpipeline"
)

// Server holds the API's dependencies: the relational store it reads/writes
// directly for ResultRow CRUD and manual-ingest canonical best-effort
// writes, the import Pipeline, canonical-aggregation config, and auth
// material.
type Server struct {
	db        *sql.DB
	importer  *importpipeline.Pipeline
	canonical *config.CanonicalConfig
	auth      *config.AuthConfig
}

// NewServer constructs a Server from its already-initialized dependencies.
func NewServer(db *sql.DB, importer *importpipeline.Pipeline, canonical *config.CanonicalConfig, auth *config.AuthConfig) *Server {
	return &Server{db: db, importer: importer, canonical: canonical, auth: auth}
}

// canonicalConfig returns the canonical-aggregation config used for
// best-effort person/affiliation writes on manual ingest.
func (s *Server) canonicalConfig() *config.CanonicalConfig {
	return s.canonical
}

// Router builds the gin engine and registers every route in §6.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger(), securityHeaders())

	r.GET("/health", s.Health)

	mining := r.Group("/api/mining")
	{
		jobs := mining.Group("/jobs/:id")
		jobs.POST("/results", s.tenantOrManualAuth(), s.IngestResults)
		jobs.GET("/results", s.tenantAuth(), s.ListResults)
		jobs.POST("/import-all", s.tenantAuth(), s.StartImport)
		jobs.GET("/import-preview", s.tenantAuth(), s.ImportPreview)

		results := mining.Group("/results")
		results.PATCH("/:id", s.tenantAuth(), s.UpdateResult)
		results.DELETE("/:id", s.tenantAuth(), s.DeleteResult)
	}

	return r
}

// Health reports process liveness and DB reachability.
func (s *Server) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// securityHeaders mirrors the teacher's echo-based securityHeaders
// middleware, ported to gin's handler shape.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}
