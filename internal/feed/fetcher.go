package feed

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lostfound/community/pkg/telemetry"
)

// DefaultPageSize is used when a page does not name a limit
const DefaultPageSize = 20

// Page selects a window of the active feed
type Page struct {
	Limit  int
	Offset int
}

// Fetcher retrieves the rows needed to build view models. It never caches:
// every call goes to the gateway.
type Fetcher struct {
	gw Gateway
}

// NewFetcher creates a fetcher reading from gw
func NewFetcher(gw Gateway) *Fetcher {
	return &Fetcher{gw: gw}
}

// Gateway returns the underlying gateway
func (f *Fetcher) Gateway() Gateway {
	return f.gw
}

// FetchListingPage returns active listings, newest first. A gateway failure
// fails the whole page.
func (f *Fetcher) FetchListingPage(ctx context.Context, page Page) (listings []Listing, err error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.fetch_listing_page", trace.WithAttributes(
		attribute.Int("limit", page.Limit),
		attribute.Int("offset", page.Offset),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := f.gw.ListListings(ctx, ListingQuery{Status: StatusActive, Limit: limit, Offset: offset})
	if err != nil {
		return nil, gatewayError("listListings", err)
	}

	listings = make([]Listing, 0, len(rows))
	for _, l := range rows {
		if l.Status == StatusActive {
			listings = append(listings, l)
		}
	}
	sortNewestFirst(listings)
	return listings, nil
}

// FetchOwnListings returns every listing authored by userID regardless of
// status, newest first
func (f *Fetcher) FetchOwnListings(ctx context.Context, userID string) (listings []Listing, err error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.fetch_own_listings")
	defer func() { telemetry.EndSpan(span, err) }()

	listings, err = f.gw.ListListings(ctx, ListingQuery{AuthorID: userID})
	if err != nil {
		return nil, gatewayError("listListings", err)
	}
	sortNewestFirst(listings)
	return listings, nil
}

// FetchListing returns a single listing, nil if it does not exist
func (f *Fetcher) FetchListing(ctx context.Context, id string) (listing *Listing, err error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.fetch_listing", trace.WithAttributes(attribute.String("listing_id", id)))
	defer func() { telemetry.EndSpan(span, err) }()

	listing, err = f.gw.GetListing(ctx, id)
	return listing, gatewayError("getListing", err)
}

// FetchProfileSummary returns the author summary for userID. A missing
// profile is not an error and yields nil.
func (f *Fetcher) FetchProfileSummary(ctx context.Context, userID string) (*ProfileSummary, error) {
	profile, err := f.gw.GetProfile(ctx, userID)
	if err != nil {
		return nil, gatewayError("getProfile", err)
	}
	if profile != nil && profile.UserID != userID {
		// Never show someone else's profile
		return nil, nil
	}
	return profile, nil
}

// FetchEngagementCounts returns the like and comment totals for a listing
// and whether viewer has liked it. Listings without likes or comments
// yield zero counts.
func (f *Fetcher) FetchEngagementCounts(ctx context.Context, listingID string, viewer *Viewer) (EngagementCounts, error) {
	var counts EngagementCounts

	likes, err := f.gw.CountLikes(ctx, listingID)
	if err != nil {
		return EngagementCounts{}, gatewayError("countLikes", err)
	}
	comments, err := f.gw.CountComments(ctx, listingID)
	if err != nil {
		return EngagementCounts{}, gatewayError("countComments", err)
	}
	counts.LikeCount = nonNegative(likes)
	counts.CommentCount = nonNegative(comments)

	if viewer.SignedIn() {
		liked, err := f.gw.HasLiked(ctx, listingID, viewer.UserID)
		if err != nil {
			return EngagementCounts{}, gatewayError("hasLiked", err)
		}
		counts.ViewerHasLiked = liked
	}
	return counts, nil
}

// FetchComments returns the comment thread of a listing in ascending
// creation order, each joined with its author summary when available
func (f *Fetcher) FetchComments(ctx context.Context, listingID string) (comments []Comment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.fetch_comments", trace.WithAttributes(attribute.String("listing_id", listingID)))
	defer func() { telemetry.EndSpan(span, err) }()

	comments, err = f.gw.ListComments(ctx, listingID)
	if err != nil {
		return nil, gatewayError("listComments", err)
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})

	f.attachCommentAuthors(ctx, comments)
	return comments, nil
}

// attachCommentAuthors joins author summaries onto comments by user id.
// Lookup failures leave the author absent.
func (f *Fetcher) attachCommentAuthors(ctx context.Context, comments []Comment) {
	userIDs := make([]string, 0, len(comments))
	seen := make(map[string]bool)
	for _, c := range comments {
		if c.Author == nil && !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			userIDs = append(userIDs, c.AuthorID)
		}
	}
	if len(userIDs) == 0 {
		return
	}

	profiles := make(map[string]ProfileSummary, len(userIDs))
	if bgw, ok := f.gw.(BatchGateway); ok {
		if batch, err := bgw.GetProfiles(ctx, userIDs); err == nil {
			profiles = batch
		}
	} else {
		for _, id := range userIDs {
			if p, err := f.FetchProfileSummary(ctx, id); err == nil && p != nil {
				profiles[id] = *p
			}
		}
	}

	for i := range comments {
		if comments[i].Author != nil {
			continue
		}
		if p, ok := profiles[comments[i].AuthorID]; ok && p.UserID == comments[i].AuthorID {
			comments[i].Author = &p
		}
	}
}

func sortNewestFirst(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
