package client

import (
	"context"

	"github.com/lostfound/community/internal/feed"
)

type listingParams struct {
	ListingID string `json:"listing_id"`
}

type listingIDsParams struct {
	ListingIDs []string `json:"listing_ids"`
}

// ListListings implements feed.Gateway
func (c *Client) ListListings(ctx context.Context, q feed.ListingQuery) ([]feed.Listing, error) {
	params := struct {
		Status   feed.Status `json:"status,omitempty"`
		AuthorID string      `json:"author_id,omitempty"`
		Limit    int         `json:"limit,omitempty"`
		Offset   int         `json:"offset,omitempty"`
	}{q.Status, q.AuthorID, q.Limit, q.Offset}

	var listings []feed.Listing
	if err := c.call(ctx, "feed.list_listings", params, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// GetListing implements feed.Gateway
func (c *Client) GetListing(ctx context.Context, id string) (*feed.Listing, error) {
	var listing *feed.Listing
	if err := c.call(ctx, "feed.get_listing", map[string]string{"id": id}, &listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetProfile implements feed.Gateway
func (c *Client) GetProfile(ctx context.Context, userID string) (*feed.ProfileSummary, error) {
	var profile *feed.ProfileSummary
	if err := c.call(ctx, "feed.get_profile", map[string]string{"user_id": userID}, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfiles implements feed.BatchGateway
func (c *Client) GetProfiles(ctx context.Context, userIDs []string) (map[string]feed.ProfileSummary, error) {
	var profiles []feed.ProfileSummary
	if err := c.call(ctx, "feed.get_profiles", map[string][]string{"user_ids": userIDs}, &profiles); err != nil {
		return nil, err
	}
	out := make(map[string]feed.ProfileSummary, len(profiles))
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

// CountLikes implements feed.Gateway
func (c *Client) CountLikes(ctx context.Context, listingID string) (int, error) {
	var n int
	err := c.call(ctx, "feed.count_likes", listingParams{listingID}, &n)
	return n, err
}

// CountComments implements feed.Gateway
func (c *Client) CountComments(ctx context.Context, listingID string) (int, error) {
	var n int
	err := c.call(ctx, "feed.count_comments", listingParams{listingID}, &n)
	return n, err
}

// CountEngagement implements feed.BatchGateway
func (c *Client) CountEngagement(ctx context.Context, listingIDs []string) (map[string]feed.Counts, error) {
	var counts map[string]feed.Counts
	if err := c.call(ctx, "feed.count_engagement", listingIDsParams{listingIDs}, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// HasLiked implements feed.Gateway. The server answers for the token's
// user, so userID must be the signed-in viewer.
func (c *Client) HasLiked(ctx context.Context, listingID, _ string) (bool, error) {
	var liked bool
	err := c.call(ctx, "feed.has_liked", listingParams{listingID}, &liked)
	return liked, err
}

// LikedSet implements feed.BatchGateway
func (c *Client) LikedSet(ctx context.Context, listingIDs []string, _ string) (map[string]bool, error) {
	var liked []string
	if err := c.call(ctx, "feed.liked_set", listingIDsParams{listingIDs}, &liked); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(liked))
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

// InsertLike implements feed.Gateway
func (c *Client) InsertLike(ctx context.Context, listingID, _ string) error {
	return c.call(ctx, "feed.insert_like", listingParams{listingID}, nil)
}

// DeleteLike implements feed.Gateway
func (c *Client) DeleteLike(ctx context.Context, listingID, _ string) error {
	return c.call(ctx, "feed.delete_like", listingParams{listingID}, nil)
}

// InsertComment implements feed.Gateway
func (c *Client) InsertComment(ctx context.Context, listingID, _, content string) (*feed.Comment, error) {
	params := struct {
		ListingID string `json:"listing_id"`
		Content   string `json:"content"`
	}{listingID, content}

	var comment feed.Comment
	if err := c.call(ctx, "feed.insert_comment", params, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments implements feed.Gateway
func (c *Client) ListComments(ctx context.Context, listingID string) ([]feed.Comment, error) {
	var comments []feed.Comment
	if err := c.call(ctx, "feed.list_comments", listingParams{listingID}, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CurrentViewer implements feed.ViewerSource
func (c *Client) CurrentViewer(ctx context.Context) (*feed.Viewer, error) {
	var viewer *feed.Viewer
	if err := c.call(ctx, "feed.current_viewer", nil, &viewer); err != nil {
		return nil, err
	}
	return viewer, nil
}
