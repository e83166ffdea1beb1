// Package stats computes community totals and keeps them cached
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lostfound/community/internal/cache"
	"github.com/lostfound/community/internal/db"
	"github.com/lostfound/community/internal/models"
	"github.com/lostfound/community/pkg/logging"
	"github.com/lostfound/community/pkg/telemetry"
)

const cacheKey = "stats:community"

// Community holds the community totals
type Community struct {
	TotalItems       int64     `json:"total_items"`
	ActiveItems      int64     `json:"active_items"`
	ReturnedItems    int64     `json:"returned_items"`
	CommunityMembers int64     `json:"community_members"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type jsonStore interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service computes community statistics
type Service struct {
	items    *db.ItemRepository
	profiles *db.ProfileRepository
	cache    jsonStore
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a statistics service. c may be nil to disable caching.
func NewService(d *db.DB, c *cache.Cache, ttl time.Duration) *Service {
	return newService(d, c, ttl)
}

func newService(d *db.DB, store jsonStore, ttl time.Duration) *Service {
	repo := db.NewRepository(d.DB)
	return &Service{
		items:    db.NewItemRepository(repo),
		profiles: db.NewProfileRepository(repo),
		cache:    store,
		ttl:      ttl,
		now:      time.Now,
		logger:   logging.WithComponent("stats"),
	}
}

// Compute counts the totals from the database
func (s *Service) Compute(ctx context.Context) (stats *Community, err error) {
	ctx, span := telemetry.StartSpan(ctx, "stats.compute")
	defer func() { telemetry.EndSpan(span, err) }()

	stats = &Community{UpdatedAt: s.now()}
	if stats.TotalItems, err = s.items.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	if stats.ActiveItems, err = s.items.Count(ctx, models.ItemStatusActive); err != nil {
		return nil, fmt.Errorf("failed to count active items: %w", err)
	}
	if stats.ReturnedItems, err = s.items.Count(ctx, models.ItemStatusClaimed, models.ItemStatusReturned); err != nil {
		return nil, fmt.Errorf("failed to count returned items: %w", err)
	}
	if stats.CommunityMembers, err = s.profiles.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	return stats, nil
}

// Community returns cached totals, computing and caching them on a miss
func (s *Service) Community(ctx context.Context) (*Community, error) {
	var cached Community
	hit, err := s.cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Failed to read cached stats", zap.Error(err))
	}
	if hit {
		return &cached, nil
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the totals and stores them in the cache
func (s *Service) Refresh(ctx context.Context) (*Community, error) {
	stats, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, cacheKey, stats, s.ttl); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("Failed to cache stats", zap.Error(err))
	}
	return stats, nil
}
