package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

// fakeGateway is an in-memory Gateway. Failures and blocking writes are
// injected per test.
type fakeGateway struct {
	mu sync.Mutex

	listings []Listing
	profiles map[string]ProfileSummary
	likes    map[string]map[string]bool
	comments map[string][]Comment

	failList     error
	failProfile  map[string]bool
	failCounts   map[string]bool
	failLike     error
	failUnlike   error
	failComment  error
	failComments error

	// likeGate, when set, holds every like write until it receives a value
	likeGate    chan struct{}
	likeEntered chan string

	calls  map[string]int
	writes []string
	now    time.Time
}

func newFakeGateway(listings ...Listing) *fakeGateway {
	return &fakeGateway{
		listings:    listings,
		profiles:    make(map[string]ProfileSummary),
		likes:       make(map[string]map[string]bool),
		comments:    make(map[string][]Comment),
		failProfile: make(map[string]bool),
		failCounts:  make(map[string]bool),
		calls:       make(map[string]int),
		now:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeGateway) record(op string) {
	f.calls[op]++
}

func (f *fakeGateway) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGateway) writeLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func (f *fakeGateway) ListListings(_ context.Context, q ListingQuery) ([]Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("listListings")
	if f.failList != nil {
		return nil, f.failList
	}
	var out []Listing
	for _, l := range f.listings {
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if q.AuthorID != "" && l.AuthorID != q.AuthorID {
			continue
		}
		out = append(out, l)
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeGateway) GetListing(_ context.Context, id string) (*Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("getListing")
	for _, l := range f.listings {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, nil
}

func (f *fakeGateway) GetProfile(_ context.Context, userID string) (*ProfileSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("getProfile")
	if f.failProfile[userID] {
		return nil, errBoom
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeGateway) CountLikes(_ context.Context, listingID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("countLikes")
	if f.failCounts[listingID] {
		return 0, errBoom
	}
	return len(f.likes[listingID]), nil
}

func (f *fakeGateway) CountComments(_ context.Context, listingID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("countComments")
	if f.failCounts[listingID] {
		return 0, errBoom
	}
	return len(f.comments[listingID]), nil
}

func (f *fakeGateway) HasLiked(_ context.Context, listingID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("hasLiked")
	return f.likes[listingID][userID], nil
}

func (f *fakeGateway) InsertLike(ctx context.Context, listingID, userID string) error {
	if err := f.waitGate(ctx, listingID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("insertLike")
	f.writes = append(f.writes, "like:"+listingID)
	if f.failLike != nil {
		return f.failLike
	}
	if f.likes[listingID] == nil {
		f.likes[listingID] = make(map[string]bool)
	}
	f.likes[listingID][userID] = true
	return nil
}

func (f *fakeGateway) DeleteLike(ctx context.Context, listingID, userID string) error {
	if err := f.waitGate(ctx, listingID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("deleteLike")
	f.writes = append(f.writes, "unlike:"+listingID)
	if f.failUnlike != nil {
		return f.failUnlike
	}
	delete(f.likes[listingID], userID)
	return nil
}

func (f *fakeGateway) waitGate(ctx context.Context, listingID string) error {
	f.mu.Lock()
	gate, entered := f.likeGate, f.likeEntered
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	if entered != nil {
		entered <- listingID
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGateway) InsertComment(_ context.Context, listingID, userID, content string) (*Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("insertComment")
	if f.failComment != nil {
		return nil, f.failComment
	}
	c := Comment{
		ID:        fmt.Sprintf("c%d", len(f.comments[listingID])+1),
		ListingID: listingID,
		AuthorID:  userID,
		Content:   content,
		CreatedAt: f.now.Add(time.Duration(len(f.comments[listingID])) * time.Minute),
	}
	f.comments[listingID] = append(f.comments[listingID], c)
	return &c, nil
}

func (f *fakeGateway) ListComments(_ context.Context, listingID string) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("listComments")
	if f.failComments != nil {
		return nil, f.failComments
	}
	return append([]Comment(nil), f.comments[listingID]...), nil
}

// batchGateway adds batched lookups on top of fakeGateway
type batchGateway struct {
	*fakeGateway
	failBatchProfiles bool
	failBatchCounts   bool
	failBatchLiked    bool
}

func (b *batchGateway) GetProfiles(_ context.Context, userIDs []string) (map[string]ProfileSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("getProfiles")
	if b.failBatchProfiles {
		return nil, errBoom
	}
	out := make(map[string]ProfileSummary)
	for _, id := range userIDs {
		if p, ok := b.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (b *batchGateway) CountEngagement(_ context.Context, listingIDs []string) (map[string]Counts, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("countEngagement")
	if b.failBatchCounts {
		return nil, errBoom
	}
	out := make(map[string]Counts)
	for _, id := range listingIDs {
		out[id] = Counts{Likes: len(b.likes[id]), Comments: len(b.comments[id])}
	}
	return out, nil
}

func (b *batchGateway) LikedSet(_ context.Context, listingIDs []string, userID string) (map[string]bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("likedSet")
	if b.failBatchLiked {
		return nil, errBoom
	}
	out := make(map[string]bool)
	for _, id := range listingIDs {
		if b.likes[id][userID] {
			out[id] = true
		}
	}
	return out, nil
}

var baseTime = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func listing(id string, kind Kind, title string, age time.Duration) Listing {
	return Listing{
		ID:        id,
		Kind:      kind,
		Title:     title,
		Status:    StatusActive,
		AuthorID:  "author-" + id,
		CreatedAt: baseTime.Add(-age),
	}
}

func ids(models []FeedViewModel) []string {
	out := make([]string, 0, len(models))
	for _, vm := range models {
		out = append(out, vm.ID)
	}
	return out
}
