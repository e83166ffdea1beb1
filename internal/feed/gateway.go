package feed

import "context"

// ListingQuery selects a page of listings. An empty Status or AuthorID
// does not constrain the result. Results are newest first.
type ListingQuery struct {
	Status   Status
	AuthorID string
	Limit    int
	Offset   int
}

// Gateway is the remote store holding listings, profiles, likes and
// comments. Single-row lookups return nil without error when the row does
// not exist.
type Gateway interface {
	ListListings(ctx context.Context, q ListingQuery) ([]Listing, error)
	GetListing(ctx context.Context, id string) (*Listing, error)
	GetProfile(ctx context.Context, userID string) (*ProfileSummary, error)
	CountLikes(ctx context.Context, listingID string) (int, error)
	CountComments(ctx context.Context, listingID string) (int, error)
	HasLiked(ctx context.Context, listingID, userID string) (bool, error)
	InsertLike(ctx context.Context, listingID, userID string) error
	DeleteLike(ctx context.Context, listingID, userID string) error
	InsertComment(ctx context.Context, listingID, userID, content string) (*Comment, error)
	ListComments(ctx context.Context, listingID string) ([]Comment, error)
}

// Counts is one listing's totals as returned by a batched count
type Counts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

// BatchGateway is implemented by gateways that can answer the per-listing
// lookups for a whole page in one round trip. Missing keys mean absent
// profile, zero counts and not liked.
type BatchGateway interface {
	Gateway
	GetProfiles(ctx context.Context, userIDs []string) (map[string]ProfileSummary, error)
	CountEngagement(ctx context.Context, listingIDs []string) (map[string]Counts, error)
	LikedSet(ctx context.Context, listingIDs []string, userID string) (map[string]bool, error)
}

// ImageUploader persists image bytes and returns a stable public URL
type ImageUploader interface {
	UploadImage(ctx context.Context, data []byte, contentType string) (string, error)
}

// ViewerSource resolves the current authenticated identity, nil when
// nobody is signed in
type ViewerSource interface {
	CurrentViewer(ctx context.Context) (*Viewer, error)
}
