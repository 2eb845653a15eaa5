package server

import (
	"strings"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/orgcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderOrg   = "X-Org-ID"
	HeaderActor = "X-Actor-ID"
)

// OrgContext resolves the tenant from the X-Org-ID header and injects it
// into the request context. Every /api route requires it.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		orgID, err := snowflake.ParseString(raw)
		if err != nil || orgID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)

		// Actor is optional at this layer; handlers that need one (shift
		// open/close) fail with their own error when it is absent.
		if rawActor := strings.TrimSpace(c.GetHeader(HeaderActor)); rawActor != "" {
			actorID, err := snowflake.ParseString(rawActor)
			if err != nil || actorID == 0 {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			ctx = orgcontext.WithActorID(ctx, actorID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLog writes one structured access line per request.
func RequestLog(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
