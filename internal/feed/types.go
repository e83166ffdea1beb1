// Package feed composes lost-and-found listings into display-ready view
// models and keeps their engagement state consistent while a viewer
// interacts with them.
package feed

import "time"

// Kind says whether an item was lost or found
type Kind string

const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	return k == KindLost || k == KindFound
}

// Status is the lifecycle state of a listing. Listings start active and
// only move on through the claim workflow.
type Status string

const (
	StatusActive   Status = "active"
	StatusClaimed  Status = "claimed"
	StatusReturned Status = "returned"
)

// MaxImages is the most images a single listing may carry
const MaxImages = 5

// Listing is a posted lost or found item
type Listing struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"type"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Location      string     `json:"location,omitempty"`
	CategoryID    string     `json:"category_id,omitempty"`
	CategoryName  string     `json:"category_name,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Images        []string   `json:"image_urls,omitempty"`
	Status        Status     `json:"status"`
	AuthorID      string     `json:"user_id"`
	DateLostFound *time.Time `json:"date_lost_found,omitempty"`
	RewardOffered *float64   `json:"reward_offered,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ProfileSummary is the author display data joined onto listings and
// comments. It may be stale but always belongs to UserID.
type ProfileSummary struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"full_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// EngagementCounts holds the server-side totals for a listing plus the
// requesting viewer's own like flag
type EngagementCounts struct {
	LikeCount      int  `json:"like_count"`
	CommentCount   int  `json:"comment_count"`
	ViewerHasLiked bool `json:"user_has_liked"`
}

// Comment belongs to exactly one listing
type Comment struct {
	ID        string          `json:"id"`
	ListingID string          `json:"item_id"`
	AuthorID  string          `json:"user_id"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Author    *ProfileSummary `json:"profiles,omitempty"`
}

// FeedViewModel is a listing joined with its author summary and counts.
// Profile is nil when the author has no profile or it could not be loaded.
type FeedViewModel struct {
	Listing
	Profile *ProfileSummary `json:"profiles"`
	EngagementCounts
}

// Viewer is the signed-in user on whose behalf reads and writes are made
type Viewer struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
}

// SignedIn reports whether v identifies a user
func (v *Viewer) SignedIn() bool {
	return v != nil && v.UserID != ""
}

// ID returns the viewer's user id, or "" for anonymous viewers
func (v *Viewer) ID() string {
	if v == nil {
		return ""
	}
	return v.UserID
}

// Category groups listings for browsing
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
