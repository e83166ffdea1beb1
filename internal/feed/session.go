package feed

import (
	"context"
)

// ItemDetail is a single listing with its comment thread
type ItemDetail struct {
	FeedViewModel
	Comments []Comment `json:"comments"`
}

// Session is one viewer's feed: it fetches and aggregates pages, holds them
// in a Reconciler for optimistic interaction and projects the visible
// subset. The viewer is fixed for the lifetime of the session.
type Session struct {
	fetch  *Fetcher
	agg    *Aggregator
	rec    *Reconciler
	viewer *Viewer
}

// NewSession creates a session for viewer reading from gw. viewer may be
// nil for anonymous browsing; mutating actions then fail with
// ErrAuthRequired.
func NewSession(gw Gateway, viewer *Viewer, opts ...AggregatorOption) *Session {
	fetch := NewFetcher(gw)
	return &Session{
		fetch:  fetch,
		agg:    NewAggregator(fetch, opts...),
		rec:    NewReconciler(gw, viewer),
		viewer: viewer,
	}
}

// Viewer returns the session's viewer
func (s *Session) Viewer() *Viewer {
	return s.viewer
}

// Reconciler returns the session's interaction state
func (s *Session) Reconciler() *Reconciler {
	return s.rec
}

// Refresh fetches and aggregates a page, replacing the held feed. On failure
// the previous feed is kept and the error returned.
func (s *Session) Refresh(ctx context.Context, page Page) ([]FeedViewModel, error) {
	listings, err := s.fetch.FetchListingPage(ctx, page)
	if err != nil {
		return nil, err
	}
	models := s.agg.Aggregate(ctx, listings, s.viewer)
	s.rec.Load(models)
	return s.rec.Snapshot(), nil
}

// Visible returns the held feed narrowed by f
func (s *Session) Visible(f Filter) []FeedViewModel {
	return Project(s.rec.Snapshot(), f)
}

// Item fetches one listing with its comments and adds it to the held feed
// so it can be liked or commented on
func (s *Session) Item(ctx context.Context, id string) (*ItemDetail, error) {
	listing, err := s.fetch.FetchListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	vm := s.agg.AggregateOne(ctx, *listing, s.viewer)
	comments, err := s.fetch.FetchComments(ctx, id)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []Comment{}
	}
	s.rec.Upsert(vm)
	return &ItemDetail{FeedViewModel: vm, Comments: comments}, nil
}

// Own returns every listing of the viewer, newest first and aggregated
func (s *Session) Own(ctx context.Context) ([]FeedViewModel, error) {
	if !s.viewer.SignedIn() {
		return nil, ErrAuthRequired
	}
	listings, err := s.fetch.FetchOwnListings(ctx, s.viewer.UserID)
	if err != nil {
		return nil, err
	}
	return s.agg.Aggregate(ctx, listings, s.viewer), nil
}

// Like likes a held listing
func (s *Session) Like(ctx context.Context, id string) error {
	return s.rec.Like(ctx, id)
}

// Unlike withdraws the viewer's like on a held listing
func (s *Session) Unlike(ctx context.Context, id string) error {
	return s.rec.Unlike(ctx, id)
}

// Comment posts a comment on a held listing
func (s *Session) Comment(ctx context.Context, id, text string) (*Comment, error) {
	return s.rec.AddComment(ctx, id, text)
}
