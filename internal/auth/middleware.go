package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/pkg/logging"
)

type viewerKey struct{}

// WithViewer returns a context carrying viewer
func WithViewer(ctx context.Context, viewer *feed.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, viewer)
}

// FromContext returns the viewer carried by ctx, nil when anonymous
func FromContext(ctx context.Context) *feed.Viewer {
	if c, ok := ctx.(*gin.Context); ok {
		ctx = c.Request.Context()
	}
	viewer, _ := ctx.Value(viewerKey{}).(*feed.Viewer)
	return viewer
}

// ContextSource resolves the viewer placed in the request context by
// Middleware
type ContextSource struct{}

var _ feed.ViewerSource = ContextSource{}

// CurrentViewer implements feed.ViewerSource
func (ContextSource) CurrentViewer(ctx context.Context) (*feed.Viewer, error) {
	return FromContext(ctx), nil
}

// Middleware resolves the bearer token once per request. Requests without
// a token continue anonymously; invalid tokens are rejected.
func Middleware(v *Verifier) gin.HandlerFunc {
	logger := logging.WithComponent("auth")

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		viewer, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("Rejected access token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithViewer(c.Request.Context(), viewer))
		c.Next()
	}
}
