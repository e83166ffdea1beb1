// Package listings creates listings and manages the viewer's own listings
// and profile
package listings

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/db"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/internal/models"
	"github.com/lostfound/community/pkg/logging"
	"github.com/lostfound/community/pkg/telemetry"
)

// Image is an image attached to a new listing
type Image struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type,omitempty"`
}

// CreateInput is a new listing as submitted by its author
type CreateInput struct {
	Kind             feed.Kind  `json:"kind"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	CategoryID       string     `json:"category_id"`
	DateLostFound    *time.Time `json:"date_lost_found"`
	ContactEmail     string     `json:"contact_email"`
	ContactPhone     string     `json:"contact_phone"`
	RewardOffered    *float64   `json:"reward_offered"`
	SecurityQuestion string     `json:"security_question"`
	SecurityAnswer   string     `json:"security_answer"`
	Tags             string     `json:"tags"`
	Images           []Image    `json:"images"`
}

// Profile is the viewer's own profile, contact details included
type Profile struct {
	feed.ProfileSummary
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// ProfileUpdate changes the viewer's profile. Nil fields are left alone.
type ProfileUpdate struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

// Service handles listing creation and the viewer's own data
type Service struct {
	items      *db.ItemRepository
	profiles   *db.ProfileRepository
	categories *db.CategoryRepository
	uploader   feed.ImageUploader
	logger     *zap.Logger
}

// NewService creates a listings service. uploader may be nil, in which
// case listings with images are rejected.
func NewService(d *db.DB, uploader feed.ImageUploader) *Service {
	repo := db.NewRepository(d.DB)
	return &Service{
		items:      db.NewItemRepository(repo),
		profiles:   db.NewProfileRepository(repo),
		categories: db.NewCategoryRepository(repo),
		uploader:   uploader,
		logger:     logging.WithComponent("listings"),
	}
}

// Create validates in, uploads its images and stores an active listing
// owned by viewer
func (s *Service) Create(ctx context.Context, viewer *feed.Viewer, in *CreateInput) (listing *feed.Listing, err error) {
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "listings.create")
	defer func() { telemetry.EndSpan(span, err) }()

	var category *models.Category
	if id := strings.TrimSpace(in.CategoryID); id != "" {
		category, err = s.categories.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil {
			return nil, feed.NewValidationError("category_id", feed.ReasonInvalid, "unknown category")
		}
	}

	urls, err := s.uploadImages(ctx, in.Images)
	if err != nil {
		return nil, err
	}

	item := &models.Item{
		UserID:           viewer.UserID,
		Type:             string(in.Kind),
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Location:         db.NullString(in.Location),
		ContactEmail:     db.NullString(in.ContactEmail),
		ContactPhone:     db.NullString(in.ContactPhone),
		SecurityQuestion: db.NullString(in.SecurityQuestion),
		SecurityAnswer:   db.NullString(in.SecurityAnswer),
		ImageURLs:        pq.StringArray(urls),
		Tags:             pq.StringArray(SplitTags(in.Tags)),
		Status:           models.ItemStatusActive,
	}
	if category != nil {
		item.CategoryID = sql.NullString{String: category.ID, Valid: true}
	}
	if in.DateLostFound != nil {
		item.DateLostFound = sql.NullTime{Time: *in.DateLostFound, Valid: true}
	}
	if in.RewardOffered != nil {
		item.RewardOffered = sql.NullFloat64{Float64: *in.RewardOffered, Valid: true}
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, &feed.GatewayError{Op: "insertListing", Err: err}
	}

	l := db.ItemToListing(item)
	if category != nil {
		l.CategoryName = category.Name
	}

	s.logger.Info("Created listing",
		zap.String("listing_id", l.ID),
		zap.String("type", string(l.Kind)),
		zap.Int("images", len(urls)),
		logging.Viewer(viewer.UserID))
	return &l, nil
}

func (s *Service) uploadImages(ctx context.Context, images []Image) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if s.uploader == nil {
		return nil, feed.NewValidationError("images", feed.ReasonInvalid, "image uploads are not configured")
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := s.uploader.UploadImage(ctx, img.Data, img.ContentType)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Mine returns every listing owned by viewer, all statuses, newest first
func (s *Service) Mine(ctx context.Context, viewer *feed.Viewer) ([]feed.Listing, error) {
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}

	items, err := s.items.List(ctx, db.ItemFilter{UserID: viewer.UserID})
	if err != nil {
		return nil, &feed.GatewayError{Op: "listListings", Err: err}
	}

	listings := make([]feed.Listing, 0, len(items))
	for _, item := range items {
		listings = append(listings, db.ItemToListing(item))
	}
	return listings, nil
}

// Profile returns the viewer's profile, creating an empty one on first use
func (s *Service) Profile(ctx context.Context, viewer *feed.Viewer) (*Profile, error) {
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}

	p, err := s.ensureProfile(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return toProfile(p), nil
}

// UpdateProfile changes the viewer's full name and phone
func (s *Service) UpdateProfile(ctx context.Context, viewer *feed.Viewer, update *ProfileUpdate) (*Profile, error) {
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}

	p, err := s.ensureProfile(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if update.FullName != nil {
		p.FullName = db.NullString(*update.FullName)
	}
	if update.Phone != nil {
		p.Phone = db.NullString(*update.Phone)
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, &feed.GatewayError{Op: "updateProfile", Err: err}
	}

	s.logger.Debug("Updated profile", logging.Viewer(viewer.UserID))
	return toProfile(p), nil
}

func (s *Service) ensureProfile(ctx context.Context, viewer *feed.Viewer) (*models.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, viewer.UserID)
	if err != nil {
		return nil, &feed.GatewayError{Op: "getProfile", Err: err}
	}
	if p != nil {
		return p, nil
	}

	p = &models.Profile{UserID: viewer.UserID, Email: db.NullString(viewer.Email)}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, &feed.GatewayError{Op: "createProfile", Err: err}
	}
	return p, nil
}

func toProfile(p *models.Profile) *Profile {
	return &Profile{
		ProfileSummary: db.ProfileToSummary(p),
		Email:          p.Email.String,
		Phone:          p.Phone.String,
		IsAdmin:        p.IsAdmin,
	}
}
