package feed

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/lostfound/community/pkg/logging"
	"github.com/lostfound/community/pkg/telemetry"
)

// Reconciler owns the in-memory feed of one viewer and applies likes,
// unlikes and comments to it optimistically.
//
// Each listing keeps its last confirmed counts and a queue of pending
// actions. What is displayed is always the confirmed state with the pending
// actions replayed on top, so a settled action is reconciled against the
// current state rather than the state it started from. Like and unlike
// writes for one listing reach the gateway in the order they were issued,
// which makes rapid toggles converge on the viewer's last choice.
type Reconciler struct {
	gw     Gateway
	fetch  *Fetcher
	viewer *Viewer
	logger *zap.Logger

	rolledBack metric.Int64Counter

	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

// entry is one listing's state. Its mutex guards every field.
type entry struct {
	mu sync.Mutex

	confirmed FeedViewModel
	view      FeedViewModel
	pending   []pendingAction
	nextID    uint64

	// likeTail is closed when the last issued like or unlike write settles
	likeTail chan struct{}

	expanded    bool
	comments    []Comment
	commentsSeq uint64

	// stale entries were replaced by a refetch or reset; late results for
	// them are dropped
	stale bool
}

type pendingAction struct {
	id   uint64
	kind ActionKind
}

// NewReconciler creates an empty feed for viewer, which may be nil for an
// anonymous session
func NewReconciler(gw Gateway, viewer *Viewer) *Reconciler {
	return &Reconciler{
		gw:         gw,
		fetch:      NewFetcher(gw),
		viewer:     viewer,
		logger:     logging.WithComponent("feed-reconciler").With(logging.Viewer(viewer.ID())),
		rolledBack: telemetry.Counter("feed.action.rolled_back", "Optimistic actions reverted after a failed write"),
		entries:    make(map[string]*entry),
	}
}

// Viewer returns the identity this feed was built for
func (r *Reconciler) Viewer() *Viewer {
	return r.viewer
}

// Load replaces the feed with freshly aggregated view models. Actions still
// in flight against the previous feed settle without touching the new one.
func (r *Reconciler) Load(models []FeedViewModel) {
	entries := make(map[string]*entry, len(models))
	order := make([]string, 0, len(models))
	for _, vm := range models {
		if _, dup := entries[vm.ID]; dup {
			continue
		}
		vm.LikeCount = nonNegative(vm.LikeCount)
		vm.CommentCount = nonNegative(vm.CommentCount)
		if !r.viewer.SignedIn() {
			vm.ViewerHasLiked = false
		}
		entries[vm.ID] = &entry{confirmed: vm, view: vm}
		order = append(order, vm.ID)
	}

	r.mu.Lock()
	old := r.entries
	r.entries = entries
	r.order = order
	r.mu.Unlock()

	markStale(old)
}

// Upsert adds or replaces a single listing, keeping the rest of the feed.
// A replaced listing behaves as if refetched.
func (r *Reconciler) Upsert(vm FeedViewModel) {
	vm.LikeCount = nonNegative(vm.LikeCount)
	vm.CommentCount = nonNegative(vm.CommentCount)
	if !r.viewer.SignedIn() {
		vm.ViewerHasLiked = false
	}

	r.mu.Lock()
	old, exists := r.entries[vm.ID]
	r.entries[vm.ID] = &entry{confirmed: vm, view: vm}
	if !exists {
		r.order = append(r.order, vm.ID)
	}
	r.mu.Unlock()

	if exists {
		markStale(map[string]*entry{vm.ID: old})
	}
}

// Reset drops the feed, as when its view is torn down
func (r *Reconciler) Reset() {
	r.mu.Lock()
	old := r.entries
	r.entries = make(map[string]*entry)
	r.order = nil
	r.mu.Unlock()

	markStale(old)
}

func markStale(entries map[string]*entry) {
	for _, e := range entries {
		e.mu.Lock()
		e.stale = true
		e.mu.Unlock()
	}
}

// Snapshot returns the displayed view models in feed order
func (r *Reconciler) Snapshot() []FeedViewModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FeedViewModel, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		e.mu.Lock()
		out = append(out, e.view)
		e.mu.Unlock()
	}
	return out
}

// Get returns the displayed view model of one listing
func (r *Reconciler) Get(listingID string) (FeedViewModel, bool) {
	e := r.lookup(listingID)
	if e == nil {
		return FeedViewModel{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view, true
}

func (r *Reconciler) lookup(listingID string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[listingID]
}

// Like marks the listing as liked by the viewer. Liking an already liked
// listing does nothing and issues no write.
func (r *Reconciler) Like(ctx context.Context, listingID string) error {
	return r.setLiked(ctx, listingID, true)
}

// Unlike withdraws the viewer's like. Unliking a listing that is not liked
// does nothing and issues no write.
func (r *Reconciler) Unlike(ctx context.Context, listingID string) error {
	return r.setLiked(ctx, listingID, false)
}

// ToggleLike likes or unlikes depending on the displayed state
func (r *Reconciler) ToggleLike(ctx context.Context, listingID string) error {
	if !r.viewer.SignedIn() {
		return ErrAuthRequired
	}
	vm, ok := r.Get(listingID)
	if !ok {
		return ErrUnknownListing
	}
	return r.setLiked(ctx, listingID, !vm.ViewerHasLiked)
}

func (r *Reconciler) setLiked(ctx context.Context, listingID string, liked bool) error {
	if !r.viewer.SignedIn() {
		return ErrAuthRequired
	}
	e := r.lookup(listingID)
	if e == nil {
		return ErrUnknownListing
	}

	kind := ActionUnlike
	if liked {
		kind = ActionLike
	}

	e.mu.Lock()
	if e.view.ViewerHasLiked == liked {
		e.mu.Unlock()
		return nil
	}
	id := e.enqueue(kind)
	prev := e.likeTail
	done := make(chan struct{})
	e.likeTail = done
	e.mu.Unlock()

	// Wait for the previous like write on this listing before issuing ours
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				close(done)
			}()
			return r.settle(e, id, kind, listingID, ctx.Err())
		}
	}
	defer close(done)

	var err error
	if liked {
		err = r.gw.InsertLike(ctx, listingID, r.viewer.UserID)
		err = gatewayError("insertLike", err)
	} else {
		err = r.gw.DeleteLike(ctx, listingID, r.viewer.UserID)
		err = gatewayError("deleteLike", err)
	}
	return r.settle(e, id, kind, listingID, err)
}

// AddComment posts a comment on the listing. The comment count rises
// immediately; an expanded thread is refetched once the write succeeds.
func (r *Reconciler) AddComment(ctx context.Context, listingID, text string) (*Comment, error) {
	if !r.viewer.SignedIn() {
		return nil, ErrAuthRequired
	}
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, NewValidationError("content", ReasonEmptyContent, "comment must not be empty")
	}
	e := r.lookup(listingID)
	if e == nil {
		return nil, ErrUnknownListing
	}

	e.mu.Lock()
	id := e.enqueue(ActionComment)
	e.mu.Unlock()

	comment, err := r.gw.InsertComment(ctx, listingID, r.viewer.UserID, content)
	if err := r.settle(e, id, ActionComment, listingID, gatewayError("insertComment", err)); err != nil {
		return nil, err
	}

	e.mu.Lock()
	refresh := e.expanded && !e.stale
	e.mu.Unlock()
	if refresh {
		if _, err := r.loadComments(ctx, e, listingID); err != nil {
			// The comment exists; only the thread refresh failed
			r.logger.Warn("Failed to refresh comments", logging.Listing(listingID), zap.Error(err))
		}
	}
	return comment, nil
}

// ExpandComments marks the thread as expanded and fetches it
func (r *Reconciler) ExpandComments(ctx context.Context, listingID string) ([]Comment, error) {
	e := r.lookup(listingID)
	if e == nil {
		return nil, ErrUnknownListing
	}
	e.mu.Lock()
	e.expanded = true
	e.mu.Unlock()
	return r.loadComments(ctx, e, listingID)
}

// CollapseComments hides the thread and forgets the cached comments
func (r *Reconciler) CollapseComments(listingID string) {
	e := r.lookup(listingID)
	if e == nil {
		return
	}
	e.mu.Lock()
	e.expanded = false
	e.comments = nil
	e.commentsSeq++
	e.mu.Unlock()
}

// Comments returns the cached thread of an expanded listing
func (r *Reconciler) Comments(listingID string) ([]Comment, bool) {
	e := r.lookup(listingID)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.expanded {
		return nil, false
	}
	return append([]Comment(nil), e.comments...), true
}

// loadComments fetches the thread and stores it unless a newer fetch, a
// collapse or a refetch of the feed happened meanwhile
func (r *Reconciler) loadComments(ctx context.Context, e *entry, listingID string) ([]Comment, error) {
	e.mu.Lock()
	e.commentsSeq++
	seq := e.commentsSeq
	e.mu.Unlock()

	comments, err := r.fetch.FetchComments(ctx, listingID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if !e.stale && e.expanded && e.commentsSeq == seq {
		e.comments = comments
	}
	e.mu.Unlock()
	return comments, nil
}

// settle removes a pending action, folding it into the confirmed state when
// its write succeeded, and recomputes the displayed state
func (r *Reconciler) settle(e *entry, id uint64, kind ActionKind, listingID string, writeErr error) error {
	e.mu.Lock()
	if e.stale {
		e.mu.Unlock()
		r.logger.Debug("Dropped result for superseded listing", logging.Listing(listingID), zap.String("action", string(kind)))
		if writeErr != nil {
			return &ActionFailedError{Kind: kind, ListingID: listingID, Err: writeErr}
		}
		return nil
	}

	e.dequeue(id)
	if writeErr == nil {
		applyAction(&e.confirmed.EngagementCounts, kind)
	}
	e.recompute()
	state := e.view.EngagementCounts
	e.mu.Unlock()

	if writeErr != nil {
		r.rolledBack.Add(context.Background(), 1, telemetry.Attr("action", string(kind)))
		r.logger.Warn("Optimistic action rolled back",
			logging.Listing(listingID),
			zap.String("action", string(kind)),
			zap.Int("like_count", state.LikeCount),
			zap.Bool("viewer_has_liked", state.ViewerHasLiked),
			zap.Error(writeErr))
		return &ActionFailedError{Kind: kind, ListingID: listingID, Err: writeErr}
	}
	return nil
}

// enqueue records a pending action and shows its effect. Caller holds e.mu.
func (e *entry) enqueue(kind ActionKind) uint64 {
	e.nextID++
	e.pending = append(e.pending, pendingAction{id: e.nextID, kind: kind})
	applyAction(&e.view.EngagementCounts, kind)
	return e.nextID
}

// dequeue drops a pending action. Caller holds e.mu.
func (e *entry) dequeue(id uint64) {
	for i, a := range e.pending {
		if a.id == id {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return
		}
	}
}

// recompute replays pending actions over the confirmed state. Caller holds e.mu.
func (e *entry) recompute() {
	counts := e.confirmed.EngagementCounts
	for _, a := range e.pending {
		applyAction(&counts, a.kind)
	}
	e.view.EngagementCounts = counts
}

// applyAction is the per-listing transition function. Like and unlike are
// no-ops when the flag already matches, so likeCount never double counts
// and never drops below zero.
func applyAction(c *EngagementCounts, kind ActionKind) {
	switch kind {
	case ActionLike:
		if !c.ViewerHasLiked {
			c.ViewerHasLiked = true
			c.LikeCount++
		}
	case ActionUnlike:
		if c.ViewerHasLiked {
			c.ViewerHasLiked = false
			if c.LikeCount > 0 {
				c.LikeCount--
			}
		}
	case ActionComment:
		c.CommentCount++
	}
}
