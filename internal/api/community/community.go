// Package community serves categories and community statistics
package community

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/cache"
	"github.com/lostfound/community/internal/db"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/internal/stats"
	"github.com/lostfound/community/pkg/logging"
)

const (
	categoriesKey = "categories:all"
	categoriesTTL = time.Hour
)

// API provides categories.list and stats.community
type API struct {
	categories *db.CategoryRepository
	stats      *stats.Service
	cache      *cache.Cache
	logger     *zap.Logger
}

// NewAPI creates a community API. redisCache may be nil.
func NewAPI(repo *db.Repository, statsService *stats.Service, redisCache *cache.Cache) *API {
	return &API{
		categories: db.NewCategoryRepository(repo),
		stats:      statsService,
		cache:      redisCache,
		logger:     logging.WithComponent("api-community"),
	}
}

// ListCategories handles categories.list
func (a *API) ListCategories(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	ctx := c.Request.Context()

	var cached []feed.Category
	hit, err := a.cache.GetJSON(ctx, categoriesKey, &cached)
	if err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		a.logger.Warn("Failed to read cached categories", zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	rows, err := a.categories.List(ctx)
	if err != nil {
		return nil, &feed.GatewayError{Op: "listCategories", Err: err}
	}
	categories := make([]feed.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, db.CategoryFromModel(row))
	}

	if err := a.cache.SetJSON(ctx, categoriesKey, categories, categoriesTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		a.logger.Warn("Failed to cache categories", zap.Error(err))
	}
	return categories, nil
}

// CommunityStats handles stats.community
func (a *API) CommunityStats(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	return a.stats.Community(c.Request.Context())
}
