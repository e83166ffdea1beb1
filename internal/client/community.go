package client

import (
	"context"
	"time"

	"github.com/lostfound/community/internal/feed"
)

// Stats are the community totals
type Stats struct {
	TotalItems       int64     `json:"total_items"`
	ActiveItems      int64     `json:"active_items"`
	ReturnedItems    int64     `json:"returned_items"`
	CommunityMembers int64     `json:"community_members"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Image is an image attached to a new listing
type Image struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type,omitempty"`
}

// NewListing is a listing to post
type NewListing struct {
	Kind          feed.Kind `json:"kind"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      string    `json:"location,omitempty"`
	CategoryID    string    `json:"category_id,omitempty"`
	DateLostFound string    `json:"date_lost_found,omitempty"`
	ContactEmail  string    `json:"contact_email,omitempty"`
	ContactPhone  string    `json:"contact_phone,omitempty"`
	RewardOffered *float64  `json:"reward_offered,omitempty"`
	Tags          string    `json:"tags,omitempty"`
	Images        []Image   `json:"images,omitempty"`
}

// Profile is the viewer's own profile
type Profile struct {
	feed.ProfileSummary
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Stats returns the community totals
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.call(ctx, "stats.community", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Categories returns every category ordered by name
func (c *Client) Categories(ctx context.Context) ([]feed.Category, error) {
	var categories []feed.Category
	if err := c.call(ctx, "categories.list", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateListing posts a new listing
func (c *Client) CreateListing(ctx context.Context, in *NewListing) (*feed.Listing, error) {
	var listing feed.Listing
	if err := c.call(ctx, "listings.create", in, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// Profile returns the viewer's profile
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.call(ctx, "profiles.me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile changes the viewer's name and phone. Nil fields are left
// alone.
func (c *Client) UpdateProfile(ctx context.Context, fullName, phone *string) (*Profile, error) {
	params := struct {
		FullName *string `json:"full_name,omitempty"`
		Phone    *string `json:"phone,omitempty"`
	}{fullName, phone}

	var profile Profile
	if err := c.call(ctx, "profiles.update", params, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
