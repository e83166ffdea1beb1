package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lostfound/community/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ItemFilter selects items. Empty fields do not constrain the result.
type ItemFilter struct {
	Status string
	UserID string
	Limit  int
	Offset int
}

// ItemRepository provides item-related database operations
type ItemRepository struct {
	*Repository
}

// NewItemRepository creates a new item repository
func NewItemRepository(repo *Repository) *ItemRepository {
	return &ItemRepository{Repository: repo}
}

// GetByID retrieves an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// List retrieves items newest first
func (r *ItemRepository) List(ctx context.Context, f ItemFilter) ([]*models.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var items []*models.Item
	if err := query.Order("created_at DESC").Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Exists reports whether an item with id exists
func (r *ItemRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create creates a new item
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Count counts items, optionally restricted to statuses
func (r *ItemRepository) Count(ctx context.Context, statuses ...string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ProfileRepository provides profile-related database operations
type ProfileRepository struct {
	*Repository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(repo *Repository) *ProfileRepository {
	return &ProfileRepository{Repository: repo}
}

// GetByUserID retrieves the profile of a user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByUserIDs retrieves multiple profiles by user id
func (r *ProfileRepository) GetByUserIDs(ctx context.Context, userIDs []string) ([]*models.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// Update updates a profile
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// Count counts every profile
func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CategoryRepository provides category-related database operations
type CategoryRepository struct {
	*Repository
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(repo *Repository) *CategoryRepository {
	return &CategoryRepository{Repository: repo}
}

// List retrieves every category ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	if err := r.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetByIDs retrieves multiple categories by id
func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var categories []*models.Category
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// GetByID retrieves a category by id
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// itemCount is one row of a grouped count
type itemCount struct {
	ItemID string
	Count  int64
}

// countByItems counts rows of model grouped by item_id
func (r *Repository) countByItems(ctx context.Context, model interface{}, itemIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var rows []itemCount
	if err := r.db.WithContext(ctx).Model(model).
		Select("item_id, COUNT(*) AS count").
		Where("item_id IN ?", itemIDs).
		Group("item_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ItemID] = row.Count
	}
	return out, nil
}

// LikeRepository provides like-related database operations
type LikeRepository struct {
	*Repository
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(repo *Repository) *LikeRepository {
	return &LikeRepository{Repository: repo}
}

// Count counts the likes of an item
func (r *LikeRepository) Count(ctx context.Context, itemID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ItemLike{}).Where("item_id = ?", itemID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByItems counts likes for many items at once
func (r *LikeRepository) CountByItems(ctx context.Context, itemIDs []string) (map[string]int64, error) {
	return r.countByItems(ctx, &models.ItemLike{}, itemIDs)
}

// Exists reports whether userID has liked itemID
func (r *LikeRepository) Exists(ctx context.Context, itemID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ItemLike{}).
		Where("item_id = ? AND user_id = ?", itemID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LikedItems returns the subset of itemIDs that userID has liked
func (r *LikeRepository) LikedItems(ctx context.Context, itemIDs []string, userID string) ([]string, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var liked []string
	if err := r.db.WithContext(ctx).Model(&models.ItemLike{}).
		Where("item_id IN ? AND user_id = ?", itemIDs, userID).
		Pluck("item_id", &liked).Error; err != nil {
		return nil, err
	}
	return liked, nil
}

// Insert records a like. Liking twice keeps a single row.
func (r *LikeRepository) Insert(ctx context.Context, itemID, userID string) error {
	like := &models.ItemLike{ItemID: itemID, UserID: userID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(like).Error
}

// Delete removes a like. Removing a missing like is not an error.
func (r *LikeRepository) Delete(ctx context.Context, itemID, userID string) error {
	return r.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", itemID, userID).
		Delete(&models.ItemLike{}).Error
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// Count counts the comments of an item
func (r *CommentRepository) Count(ctx context.Context, itemID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ItemComment{}).Where("item_id = ?", itemID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByItems counts comments for many items at once
func (r *CommentRepository) CountByItems(ctx context.Context, itemIDs []string) (map[string]int64, error) {
	return r.countByItems(ctx, &models.ItemComment{}, itemIDs)
}

// ListByItem retrieves the comments of an item, oldest first
func (r *CommentRepository) ListByItem(ctx context.Context, itemID string) ([]*models.ItemComment, error) {
	var comments []*models.ItemComment
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").Order("id").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.ItemComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}
