// Package browse serves aggregated feed pages and item details
package browse

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/lostfound/community/internal/api/params"
	"github.com/lostfound/community/internal/auth"
	"github.com/lostfound/community/internal/feed"
)

// API provides feed.get_feed and feed.get_item
type API struct {
	gw       feed.Gateway
	fetch    *feed.Fetcher
	agg      *feed.Aggregator
	opts     []feed.AggregatorOption
	pageSize int
}

// NewAPI creates a browse API over gw
func NewAPI(gw feed.Gateway, pageSize int, opts ...feed.AggregatorOption) *API {
	fetch := feed.NewFetcher(gw)
	return &API{
		gw:       gw,
		fetch:    fetch,
		agg:      feed.NewAggregator(fetch, opts...),
		opts:     opts,
		pageSize: pageSize,
	}
}

type feedParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	feed.Filter
}

// GetFeed handles feed.get_feed: a page of active listings, aggregated for
// the viewer and narrowed by the filter
func (a *API) GetFeed(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p feedParams
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	listings, err := a.fetch.FetchListingPage(ctx, feed.Page{
		Limit:  params.Limit(p.Limit, a.pageSize),
		Offset: p.Offset,
	})
	if err != nil {
		return nil, err
	}

	models := a.agg.Aggregate(ctx, listings, auth.FromContext(ctx))
	return feed.Project(models, p.Filter), nil
}

// GetItem handles feed.get_item
func (a *API) GetItem(c *gin.Context, raw json.RawMessage) (interface{}, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := params.Decode(raw, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, params.Missing("id")
	}

	ctx := c.Request.Context()
	session := feed.NewSession(a.gw, auth.FromContext(ctx), a.opts...)
	return session.Item(ctx, p.ID)
}
