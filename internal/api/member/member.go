// Package member serves the signed-in member's own listings and profile
package member

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lostfound/community/internal/api/params"
	"github.com/lostfound/community/internal/auth"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/internal/listings"
)

// API provides listings.* and profiles.* methods
type API struct {
	service *listings.Service
}

// NewAPI creates a member API
func NewAPI(service *listings.Service) *API {
	return &API{service: service}
}

type createParams struct {
	listings.CreateInput
	DateLostFound string `json:"date_lost_found"`
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, feed.NewValidationError("date_lost_found", feed.ReasonInvalid, "date must be YYYY-MM-DD")
}

// Create handles listings.create
func (a *API) Create(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	viewer := auth.FromContext(c.Request.Context())
	if !viewer.SignedIn() {
		return nil, feed.ErrAuthRequired
	}

	var p createParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	date, err := parseDate(p.DateLostFound)
	if err != nil {
		return nil, err
	}
	in := p.CreateInput
	in.DateLostFound = date

	return a.service.Create(c.Request.Context(), viewer, &in)
}

// Mine handles listings.mine
func (a *API) Mine(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	return a.service.Mine(c.Request.Context(), auth.FromContext(c.Request.Context()))
}

// Me handles profiles.me
func (a *API) Me(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	return a.service.Profile(c.Request.Context(), auth.FromContext(c.Request.Context()))
}

// UpdateProfile handles profiles.update
func (a *API) UpdateProfile(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var update listings.ProfileUpdate
	if err := params.Decode(raw, &update); err != nil {
		return nil, err
	}
	return a.service.UpdateProfile(c.Request.Context(), auth.FromContext(c.Request.Context()), &update)
}
