package feed

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lostfound/community/pkg/logging"
	"github.com/lostfound/community/pkg/telemetry"
)

const defaultFanOut = 8

// lookup names used in logs and the degraded counter
const (
	lookupProfile  = "profile"
	lookupLikes    = "likes"
	lookupComments = "comments"
	lookupLiked    = "viewer_like"
)

// Aggregator joins listings with author summaries and engagement counts.
// Enrichment failures are isolated per listing and per lookup: a failed
// profile yields nil, failed counts yield zero and a failed like check
// yields false. Aggregation itself never fails.
type Aggregator struct {
	fetch         *Fetcher
	fanOut        int
	lookupTimeout time.Duration
	logger        *zap.Logger
	degraded      metric.Int64Counter
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithFanOut bounds the number of listings enriched concurrently when the
// gateway has no batched lookups
func WithFanOut(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.fanOut = n
		}
	}
}

// WithLookupTimeout bounds every individual enrichment lookup
func WithLookupTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.lookupTimeout = d
	}
}

// WithLogger replaces the component logger
func WithLogger(logger *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// NewAggregator creates an aggregator enriching through fetch
func NewAggregator(fetch *Fetcher, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		fetch:    fetch,
		fanOut:   defaultFanOut,
		logger:   logging.WithComponent("feed-aggregator"),
		degraded: telemetry.Counter("feed.lookup.degraded", "Per-listing enrichment lookups that fell back to defaults"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns one view model per listing, in input order
func (a *Aggregator) Aggregate(ctx context.Context, listings []Listing, viewer *Viewer) []FeedViewModel {
	ctx, span := telemetry.StartSpan(ctx, "feed.aggregate", trace.WithAttributes(
		attribute.Int("listings", len(listings)),
		attribute.Bool("signed_in", viewer.SignedIn()),
	))
	defer span.End()

	out := make([]FeedViewModel, len(listings))
	for i := range listings {
		out[i] = FeedViewModel{Listing: listings[i]}
	}
	if len(listings) == 0 {
		return out
	}

	// pending[i] lists the lookups still owed to listing i after the batch pass
	pending := make([]lookups, len(listings))
	for i := range pending {
		pending[i] = lookups{profile: true, likes: true, comments: true, liked: viewer.SignedIn()}
	}

	if bgw, ok := a.fetch.Gateway().(BatchGateway); ok {
		a.aggregateBatched(ctx, bgw, out, pending, viewer)
	}

	a.aggregatePerListing(ctx, out, pending, viewer)
	return out
}

// AggregateOne builds the view model for a single listing
func (a *Aggregator) AggregateOne(ctx context.Context, listing Listing, viewer *Viewer) FeedViewModel {
	return a.Aggregate(ctx, []Listing{listing}, viewer)[0]
}

type lookups struct {
	profile, likes, comments, liked bool
}

func (l lookups) any() bool {
	return l.profile || l.likes || l.comments || l.liked
}

// aggregateBatched resolves whole concerns with one call each. A concern
// whose batch call fails stays pending and is retried per listing.
func (a *Aggregator) aggregateBatched(ctx context.Context, bgw BatchGateway, out []FeedViewModel, pending []lookups, viewer *Viewer) {
	userIDs := make([]string, 0, len(out))
	listingIDs := make([]string, 0, len(out))
	seenUsers := make(map[string]bool, len(out))
	for _, vm := range out {
		listingIDs = append(listingIDs, vm.ID)
		if !seenUsers[vm.AuthorID] {
			seenUsers[vm.AuthorID] = true
			userIDs = append(userIDs, vm.AuthorID)
		}
	}

	lookupCtx, cancel := a.lookupContext(ctx)
	profiles, err := bgw.GetProfiles(lookupCtx, userIDs)
	cancel()
	if err != nil {
		a.logger.Warn("Batched profile lookup failed, falling back per listing", zap.Error(err))
	} else {
		for i := range out {
			// Joined by user id, never by position
			if p, ok := profiles[out[i].AuthorID]; ok && p.UserID == out[i].AuthorID {
				out[i].Profile = &p
			}
			pending[i].profile = false
		}
	}

	lookupCtx, cancel = a.lookupContext(ctx)
	counts, err := bgw.CountEngagement(lookupCtx, listingIDs)
	cancel()
	if err != nil {
		a.logger.Warn("Batched count lookup failed, falling back per listing", zap.Error(err))
	} else {
		for i := range out {
			c := counts[out[i].ID]
			out[i].LikeCount = nonNegative(c.Likes)
			out[i].CommentCount = nonNegative(c.Comments)
			pending[i].likes = false
			pending[i].comments = false
		}
	}

	if !viewer.SignedIn() {
		return
	}

	lookupCtx, cancel = a.lookupContext(ctx)
	liked, err := bgw.LikedSet(lookupCtx, listingIDs, viewer.UserID)
	cancel()
	if err != nil {
		a.logger.Warn("Batched like lookup failed, falling back per listing", zap.Error(err), logging.Viewer(viewer.UserID))
		return
	}
	for i := range out {
		out[i].ViewerHasLiked = liked[out[i].ID]
		pending[i].liked = false
	}
}

// aggregatePerListing runs the outstanding lookups for each listing with
// bounded concurrency. Every goroutine writes only its own slot.
func (a *Aggregator) aggregatePerListing(ctx context.Context, out []FeedViewModel, pending []lookups, viewer *Viewer) {
	var g errgroup.Group
	g.SetLimit(a.fanOut)

	for i := range out {
		if !pending[i].any() {
			continue
		}
		g.Go(func() error {
			a.enrich(ctx, &out[i], pending[i], viewer)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Aggregator) enrich(ctx context.Context, vm *FeedViewModel, need lookups, viewer *Viewer) {
	gw := a.fetch.Gateway()

	if need.profile {
		lookupCtx, cancel := a.lookupContext(ctx)
		profile, err := a.fetch.FetchProfileSummary(lookupCtx, vm.AuthorID)
		cancel()
		if err != nil {
			a.degrade(ctx, vm.ID, lookupProfile, err)
		} else {
			vm.Profile = profile
		}
	}

	if need.likes {
		lookupCtx, cancel := a.lookupContext(ctx)
		n, err := gw.CountLikes(lookupCtx, vm.ID)
		cancel()
		if err != nil {
			a.degrade(ctx, vm.ID, lookupLikes, err)
		} else {
			vm.LikeCount = nonNegative(n)
		}
	}

	if need.comments {
		lookupCtx, cancel := a.lookupContext(ctx)
		n, err := gw.CountComments(lookupCtx, vm.ID)
		cancel()
		if err != nil {
			a.degrade(ctx, vm.ID, lookupComments, err)
		} else {
			vm.CommentCount = nonNegative(n)
		}
	}

	if need.liked && viewer.SignedIn() {
		lookupCtx, cancel := a.lookupContext(ctx)
		liked, err := gw.HasLiked(lookupCtx, vm.ID, viewer.UserID)
		cancel()
		if err != nil {
			a.degrade(ctx, vm.ID, lookupLiked, err)
		} else {
			vm.ViewerHasLiked = liked
		}
	}
}

func (a *Aggregator) degrade(ctx context.Context, listingID, lookup string, err error) {
	a.degraded.Add(ctx, 1, telemetry.Attr("lookup", lookup))
	a.logger.Warn("Listing enrichment degraded to default",
		logging.Listing(listingID),
		zap.String("lookup", lookup),
		zap.Error(gatewayError(lookup, err)))
}

func (a *Aggregator) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.lookupTimeout > 0 {
		return context.WithTimeout(ctx, a.lookupTimeout)
	}
	return context.WithCancel(ctx)
}
