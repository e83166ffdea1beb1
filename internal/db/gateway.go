package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/internal/models"
	"github.com/lostfound/community/pkg/telemetry"
)

// Gateway serves the feed gateway operations from Postgres. Every batched
// lookup is a single query keyed by id set.
type Gateway struct {
	items      *ItemRepository
	profiles   *ProfileRepository
	categories *CategoryRepository
	likes      *LikeRepository
	comments   *CommentRepository
}

var _ feed.BatchGateway = (*Gateway)(nil)

// NewGateway creates a gateway over db
func NewGateway(db *DB) *Gateway {
	repo := NewRepository(db.DB)
	return &Gateway{
		items:      NewItemRepository(repo),
		profiles:   NewProfileRepository(repo),
		categories: NewCategoryRepository(repo),
		likes:      NewLikeRepository(repo),
		comments:   NewCommentRepository(repo),
	}
}

func startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "db."+op, trace.WithAttributes(attrs...))
}

// ListListings retrieves a page of listings newest first
func (g *Gateway) ListListings(ctx context.Context, q feed.ListingQuery) (listings []feed.Listing, err error) {
	ctx, span := startSpan(ctx, "list_listings",
		attribute.String("status", string(q.Status)),
		attribute.Int("limit", q.Limit),
		attribute.Int("offset", q.Offset))
	defer func() { telemetry.EndSpan(span, err) }()

	items, err := g.items.List(ctx, ItemFilter{
		Status: string(q.Status),
		UserID: q.AuthorID,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return g.toListings(ctx, items)
}

// GetListing retrieves a single listing, nil if missing
func (g *Gateway) GetListing(ctx context.Context, id string) (listing *feed.Listing, err error) {
	ctx, span := startSpan(ctx, "get_listing", attribute.String("listing_id", id))
	defer func() { telemetry.EndSpan(span, err) }()

	item, err := g.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	listings, err := g.toListings(ctx, []*models.Item{item})
	if err != nil {
		return nil, err
	}
	return &listings[0], nil
}

// toListings converts items and joins their category names by id
func (g *Gateway) toListings(ctx context.Context, items []*models.Item) ([]feed.Listing, error) {
	var categoryIDs []string
	seen := make(map[string]bool)
	for _, item := range items {
		if item.CategoryID.Valid && !seen[item.CategoryID.String] {
			seen[item.CategoryID.String] = true
			categoryIDs = append(categoryIDs, item.CategoryID.String)
		}
	}

	names := make(map[string]string, len(categoryIDs))
	if len(categoryIDs) > 0 {
		categories, err := g.categories.GetByIDs(ctx, categoryIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		for _, c := range categories {
			names[c.ID] = c.Name
		}
	}

	listings := make([]feed.Listing, 0, len(items))
	for _, item := range items {
		l := ItemToListing(item)
		l.CategoryName = names[l.CategoryID]
		listings = append(listings, l)
	}
	return listings, nil
}

// GetProfile retrieves an author summary, nil if the user has no profile
func (g *Gateway) GetProfile(ctx context.Context, userID string) (*feed.ProfileSummary, error) {
	profile, err := g.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}
	summary := ProfileToSummary(profile)
	return &summary, nil
}

// GetProfiles retrieves author summaries keyed by user id
func (g *Gateway) GetProfiles(ctx context.Context, userIDs []string) (out map[string]feed.ProfileSummary, err error) {
	ctx, span := startSpan(ctx, "get_profiles", attribute.Int("users", len(userIDs)))
	defer func() { telemetry.EndSpan(span, err) }()

	profiles, err := g.profiles.GetByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	out = make(map[string]feed.ProfileSummary, len(profiles))
	for _, p := range profiles {
		out[p.UserID] = ProfileToSummary(p)
	}
	return out, nil
}

// CountLikes counts the likes of a listing
func (g *Gateway) CountLikes(ctx context.Context, listingID string) (int, error) {
	n, err := g.likes.Count(ctx, listingID)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return int(n), nil
}

// CountComments counts the comments of a listing
func (g *Gateway) CountComments(ctx context.Context, listingID string) (int, error) {
	n, err := g.comments.Count(ctx, listingID)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return int(n), nil
}

// CountEngagement counts likes and comments for many listings with one
// grouped query each. Listings without rows are present with zero counts.
func (g *Gateway) CountEngagement(ctx context.Context, listingIDs []string) (out map[string]feed.Counts, err error) {
	ctx, span := startSpan(ctx, "count_engagement", attribute.Int("listings", len(listingIDs)))
	defer func() { telemetry.EndSpan(span, err) }()

	likes, err := g.likes.CountByItems(ctx, listingIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	comments, err := g.comments.CountByItems(ctx, listingIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	out = make(map[string]feed.Counts, len(listingIDs))
	for _, id := range listingIDs {
		out[id] = feed.Counts{Likes: int(likes[id]), Comments: int(comments[id])}
	}
	return out, nil
}

// HasLiked reports whether userID liked the listing
func (g *Gateway) HasLiked(ctx context.Context, listingID, userID string) (bool, error) {
	liked, err := g.likes.Exists(ctx, listingID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return liked, nil
}

// LikedSet returns which of listingIDs userID has liked
func (g *Gateway) LikedSet(ctx context.Context, listingIDs []string, userID string) (out map[string]bool, err error) {
	ctx, span := startSpan(ctx, "liked_set", attribute.Int("listings", len(listingIDs)))
	defer func() { telemetry.EndSpan(span, err) }()

	liked, err := g.likes.LikedItems(ctx, listingIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}
	out = make(map[string]bool, len(liked))
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func (g *Gateway) requireListing(ctx context.Context, listingID string) error {
	exists, err := g.items.Exists(ctx, listingID)
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}
	if !exists {
		return feed.ErrListingNotFound
	}
	return nil
}

// InsertLike records userID's like. Liking twice is not an error.
func (g *Gateway) InsertLike(ctx context.Context, listingID, userID string) (err error) {
	ctx, span := startSpan(ctx, "insert_like", attribute.String("listing_id", listingID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := g.requireListing(ctx, listingID); err != nil {
		return err
	}
	if err := g.likes.Insert(ctx, listingID, userID); err != nil {
		return fmt.Errorf("failed to insert like: %w", err)
	}
	return nil
}

// DeleteLike removes userID's like. Removing a missing like is not an error.
func (g *Gateway) DeleteLike(ctx context.Context, listingID, userID string) (err error) {
	ctx, span := startSpan(ctx, "delete_like", attribute.String("listing_id", listingID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := g.likes.Delete(ctx, listingID, userID); err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

// InsertComment stores a comment and returns it with its author summary
func (g *Gateway) InsertComment(ctx context.Context, listingID, userID, content string) (comment *feed.Comment, err error) {
	ctx, span := startSpan(ctx, "insert_comment", attribute.String("listing_id", listingID))
	defer func() { telemetry.EndSpan(span, err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, feed.NewValidationError("content", feed.ReasonEmptyContent, "comment must not be empty")
	}
	if err := g.requireListing(ctx, listingID); err != nil {
		return nil, err
	}

	row := &models.ItemComment{ItemID: listingID, UserID: userID, Content: content}
	if err := g.comments.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	c := CommentFromModel(row)
	if author, err := g.GetProfile(ctx, userID); err == nil {
		c.Author = author
	}
	return &c, nil
}

// ListComments retrieves a listing's comments oldest first, with authors
func (g *Gateway) ListComments(ctx context.Context, listingID string) (comments []feed.Comment, err error) {
	ctx, span := startSpan(ctx, "list_comments", attribute.String("listing_id", listingID))
	defer func() { telemetry.EndSpan(span, err) }()

	rows, err := g.comments.ListByItem(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	var userIDs []string
	seen := make(map[string]bool)
	for _, row := range rows {
		if !seen[row.UserID] {
			seen[row.UserID] = true
			userIDs = append(userIDs, row.UserID)
		}
	}
	authors, err := g.GetProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	comments = make([]feed.Comment, 0, len(rows))
	for _, row := range rows {
		c := CommentFromModel(row)
		if author, ok := authors[row.UserID]; ok {
			c.Author = &author
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// ItemToListing converts a stored item. CategoryName is left empty.
func ItemToListing(item *models.Item) feed.Listing {
	l := feed.Listing{
		ID:          item.ID,
		Kind:        feed.Kind(item.Type),
		Title:       item.Title,
		Description: item.Description,
		Location:    item.Location.String,
		CategoryID:  item.CategoryID.String,
		Tags:        []string(item.Tags),
		Images:      []string(item.ImageURLs),
		Status:      feed.Status(item.Status),
		AuthorID:    item.UserID,
		CreatedAt:   item.CreatedAt,
	}
	if item.DateLostFound.Valid {
		d := item.DateLostFound.Time
		l.DateLostFound = &d
	}
	if item.RewardOffered.Valid {
		r := item.RewardOffered.Float64
		l.RewardOffered = &r
	}
	return l
}

// ProfileToSummary converts a stored profile to its display summary
func ProfileToSummary(p *models.Profile) feed.ProfileSummary {
	return feed.ProfileSummary{
		UserID:      p.UserID,
		DisplayName: p.FullName.String,
		AvatarURL:   p.AvatarURL.String,
	}
}

// CommentFromModel converts a stored comment
func CommentFromModel(c *models.ItemComment) feed.Comment {
	return feed.Comment{
		ID:        c.ID,
		ListingID: c.ItemID,
		AuthorID:  c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

// CategoryFromModel converts a stored category
func CategoryFromModel(c *models.Category) feed.Category {
	return feed.Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description.String,
		Icon:        c.Icon.String,
		CreatedAt:   c.CreatedAt,
	}
}

// NullString returns a valid NullString for non-blank s
func NullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
