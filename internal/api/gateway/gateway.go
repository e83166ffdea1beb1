// Package gateway serves the feed gateway operations over JSON-RPC so
// remote clients can run the feed core against them
package gateway

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/api/params"
	"github.com/lostfound/community/internal/auth"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/pkg/logging"
)

// API provides the feed.* gateway methods
type API struct {
	gw       feed.BatchGateway
	pageSize int
	logger   *zap.Logger
}

// NewAPI creates a gateway API
func NewAPI(gw feed.BatchGateway, pageSize int) *API {
	return &API{
		gw:       gw,
		pageSize: pageSize,
		logger:   logging.WithComponent("api-gateway"),
	}
}

type listingParams struct {
	ListingID string `json:"listing_id"`
}

func decodeListingID(raw json.RawMessage) (string, error) {
	var p listingParams
	if err := params.Decode(raw, &p); err != nil {
		return "", err
	}
	if p.ListingID == "" {
		return "", params.Missing("listing_id")
	}
	return p.ListingID, nil
}

type listingIDsParams struct {
	ListingIDs []string `json:"listing_ids"`
}

// ListListings handles feed.list_listings
func (a *API) ListListings(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		Status   feed.Status `json:"status"`
		AuthorID string      `json:"author_id"`
		Limit    int         `json:"limit"`
		Offset   int         `json:"offset"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	listings, err := a.gw.ListListings(c.Request.Context(), feed.ListingQuery{
		Status:   p.Status,
		AuthorID: p.AuthorID,
		Limit:    params.Limit(p.Limit, a.pageSize),
		Offset:   p.Offset,
	})
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []feed.Listing{}
	}
	return listings, nil
}

// GetListing handles feed.get_listing
func (a *API) GetListing(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, params.Missing("id")
	}
	return a.gw.GetListing(c.Request.Context(), p.ID)
}

// GetProfile handles feed.get_profile
func (a *API) GetProfile(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		UserID string `json:"user_id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	if p.UserID == "" {
		return nil, params.Missing("user_id")
	}
	return a.gw.GetProfile(c.Request.Context(), p.UserID)
}

// GetProfiles handles feed.get_profiles
func (a *API) GetProfiles(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}

	found, err := a.gw.GetProfiles(c.Request.Context(), p.UserIDs)
	if err != nil {
		return nil, err
	}
	profiles := make([]feed.ProfileSummary, 0, len(found))
	for _, id := range p.UserIDs {
		if profile, ok := found[id]; ok {
			profiles = append(profiles, profile)
			delete(found, id)
		}
	}
	return profiles, nil
}

// CountLikes handles feed.count_likes
func (a *API) CountLikes(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	id, err := decodeListingID(raw)
	if err != nil {
		return nil, err
	}
	return a.gw.CountLikes(c.Request.Context(), id)
}

// CountComments handles feed.count_comments
func (a *API) CountComments(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	id, err := decodeListingID(raw)
	if err != nil {
		return nil, err
	}
	return a.gw.CountComments(c.Request.Context(), id)
}

// CountEngagement handles feed.count_engagement
func (a *API) CountEngagement(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p listingIDsParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	return a.gw.CountEngagement(c.Request.Context(), p.ListingIDs)
}

// HasLiked handles feed.has_liked. Anonymous viewers have liked nothing.
func (a *API) HasLiked(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	id, err := decodeListingID(raw)
	if err != nil {
		return nil, err
	}
	viewer := auth.FromContext(c.Request.Context())
	if !viewer.SignedIn() {
		return false, nil
	}
	return a.gw.HasLiked(c.Request.Context(), id, viewer.UserID)
}

// LikedSet handles feed.liked_set
func (a *API) LikedSet(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p listingIDsParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	liked := []string{}
	viewer := auth.FromContext(c.Request.Context())
	if !viewer.SignedIn() {
		return liked, nil
	}

	set, err := a.gw.LikedSet(c.Request.Context(), p.ListingIDs, viewer.UserID)
	if err != nil {
		return nil, err
	}
	for _, id := range p.ListingIDs {
		if set[id] {
			liked = append(liked, id)
		}
	}
	return liked, nil
}

// InsertLike handles feed.insert_like
func (a *API) InsertLike(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	viewer := auth.FromContext(c.Request.Context())
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}
	id, err := decodeListingID(raw)
	if err != nil {
		return nil, err
	}
	if err := a.gw.InsertLike(c.Request.Context(), id, viewer.UserID); err != nil {
		return nil, err
	}
	a.logger.Debug("Liked listing", logging.Listing(id), logging.Viewer(viewer.UserID))
	return true, nil
}

// DeleteLike handles feed.delete_like
func (a *API) DeleteLike(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	viewer := auth.FromContext(c.Request.Context())
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}
	id, err := decodeListingID(raw)
	if err != nil {
		return nil, err
	}
	if err := a.gw.DeleteLike(c.Request.Context(), id, viewer.UserID); err != nil {
		return nil, err
	}
	a.logger.Debug("Unliked listing", logging.Listing(id), logging.Viewer(viewer.UserID))
	return true, nil
}

// InsertComment handles feed.insert_comment
func (a *API) InsertComment(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	viewer := auth.FromContext(c.Request.Context())
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}
	var p struct {
		ListingID string `json:"listing_id"`
		Content   string `json:"content"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	if p.ListingID == "" {
		return nil, params.Missing("listing_id")
	}
	return a.gw.InsertComment(c.Request.Context(), p.ListingID, viewer.UserID, p.Content)
}

// ListComments handles feed.list_comments
func (a *API) ListComments(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	id, err := decodeListingID(raw)
	if err != nil {
		return nil, err
	}
	comments, err := a.gw.ListComments(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []feed.Comment{}
	}
	return comments, nil
}

// CurrentViewer handles feed.current_viewer
func (a *API) CurrentViewer(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	return auth.FromContext(c.Request.Context()), nil
}
