package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const tenantIDKey = "tenant_id"

// bearerToken extracts the raw token from an "Authorization: Bearer <token>"
// header, mirroring the teacher's oauth2-proxy-header extraction idiom.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

// tenantAuth requires a valid tenant-scoped JWT and stores the resolved
// tenant_id in the request context.
func (s *Server) tenantAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tenantID, err := verifyTenantJWT(token, s.auth.JWTSecret)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		c.Set(tenantIDKey, tenantID)
		c.Next()
	}
}

// tenantOrManualAuth implements §6's ingest rule: "requires tenant-scoped
// auth OR a shared manual-miner bearer token". The manual path still needs
// a tenant_id, taken from the :id job's owning tenant rather than a claim,
// since the manual-miner token isn't tenant-scoped.
func (s *Server) tenantOrManualAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if s.auth.ManualMinerToken != "" && constantTimeEqual(token, s.auth.ManualMinerToken) {
			c.Set("manual_miner", true)
			c.Next()
			return
		}

		tenantID, err := verifyTenantJWT(token, s.auth.JWTSecret)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		c.Set(tenantIDKey, tenantID)
		c.Next()
	}
}

// resolveTenantID returns the authenticated tenant ID, or, for a
// manual-miner-authenticated request, the tenant that owns jobID.
func (s *Server) resolveTenantID(c *gin.Context, jobID string) (string, error) {
	if tenantID, ok := c.Get(tenantIDKey); ok {
		return tenantID.(string), nil
	}
	var tenantID string
	err := s.db.QueryRowContext(c.Request.Context(), `SELECT tenant_id FROM jobs WHERE job_id = $1`, jobID).Scan(&tenantID)
	return tenantID, err
}
