package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/api/browse"
	"github.com/lostfound/community/internal/api/community"
	"github.com/lostfound/community/internal/api/gateway"
	"github.com/lostfound/community/internal/api/member"
	"github.com/lostfound/community/internal/auth"
	"github.com/lostfound/community/internal/cache"
	"github.com/lostfound/community/internal/db"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/internal/listings"
	"github.com/lostfound/community/internal/stats"
	"github.com/lostfound/community/pkg/config"
	"github.com/lostfound/community/pkg/logging"
)

// Router sets up API routes
type Router struct {
	handler  *JSONRPCHandler
	db       *db.DB
	cache    *cache.Cache
	uploader feed.ImageUploader
	verifier *auth.Verifier
	cfg      *config.Config
	logger   *zap.Logger
}

// NewRouter creates a new API router. redisCache and uploader may be nil.
func NewRouter(cfg *config.Config, database *db.DB, redisCache *cache.Cache, uploader feed.ImageUploader) *Router {
	router := &Router{
		handler:  NewJSONRPCHandler(),
		db:       database,
		cache:    redisCache,
		uploader: uploader,
		verifier: auth.NewVerifier(cfg.Auth.JWTSecret),
		cfg:      cfg,
		logger:   logging.WithComponent("api-router"),
	}

	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// The viewer is resolved once per request from its bearer token
	engine.POST("/", auth.Middleware(r.verifier), r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	repo := db.NewRepository(r.db.DB)
	gw := db.NewGateway(r.db)
	pageSize := r.cfg.Feed.PageSize
	aggOpts := []feed.AggregatorOption{
		feed.WithFanOut(r.cfg.Feed.FanOut),
		feed.WithLookupTimeout(r.cfg.Feed.LookupTimeout),
	}

	// Gateway operations
	gatewayAPI := gateway.NewAPI(gw, pageSize)

	r.handler.RegisterMethod("feed.list_listings", gatewayAPI.ListListings)
	r.handler.RegisterMethod("feed.get_listing", gatewayAPI.GetListing)
	r.handler.RegisterMethod("feed.get_profile", gatewayAPI.GetProfile)
	r.handler.RegisterMethod("feed.get_profiles", gatewayAPI.GetProfiles)
	r.handler.RegisterMethod("feed.count_likes", gatewayAPI.CountLikes)
	r.handler.RegisterMethod("feed.count_comments", gatewayAPI.CountComments)
	r.handler.RegisterMethod("feed.count_engagement", gatewayAPI.CountEngagement)
	r.handler.RegisterMethod("feed.has_liked", gatewayAPI.HasLiked)
	r.handler.RegisterMethod("feed.liked_set", gatewayAPI.LikedSet)
	r.handler.RegisterMethod("feed.insert_like", gatewayAPI.InsertLike)
	r.handler.RegisterMethod("feed.delete_like", gatewayAPI.DeleteLike)
	r.handler.RegisterMethod("feed.insert_comment", gatewayAPI.InsertComment)
	r.handler.RegisterMethod("feed.list_comments", gatewayAPI.ListComments)
	r.handler.RegisterMethod("feed.current_viewer", gatewayAPI.CurrentViewer)

	// Aggregated views
	browseAPI := browse.NewAPI(gw, pageSize, aggOpts...)

	r.handler.RegisterMethod("feed.get_feed", browseAPI.GetFeed)
	r.handler.RegisterMethod("feed.get_item", browseAPI.GetItem)

	// Member listings and profile
	memberAPI := member.NewAPI(listings.NewService(r.db, r.uploader))

	r.handler.RegisterMethod("listings.create", memberAPI.Create)
	r.handler.RegisterMethod("listings.mine", memberAPI.Mine)
	r.handler.RegisterMethod("profiles.me", memberAPI.Me)
	r.handler.RegisterMethod("profiles.update", memberAPI.UpdateProfile)

	// Categories and statistics
	communityAPI := community.NewAPI(repo, stats.NewService(r.db, r.cache, r.cfg.Stats.TTL), r.cache)

	r.handler.RegisterMethod("categories.list", communityAPI.ListCategories)
	r.handler.RegisterMethod("stats.community", communityAPI.CommunityStats)

	r.logger.Debug("Registered API methods", zap.Int("count", r.handler.Methods()))
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	if err := r.db.Health(c.Request.Context()); err != nil {
		r.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"service": "lostfound-api",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "lostfound-api",
	})
}
