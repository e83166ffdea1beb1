package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = &Viewer{UserID: "alice"}

func loaded(gw Gateway, viewer *Viewer, models ...FeedViewModel) *Reconciler {
	r := NewReconciler(gw, viewer)
	r.Load(models)
	return r
}

func model(id string, likes, comments int, liked bool) FeedViewModel {
	return FeedViewModel{
		Listing:          listing(id, KindLost, "Wallet", 0),
		EngagementCounts: EngagementCounts{LikeCount: likes, CommentCount: comments, ViewerHasLiked: liked},
	}
}

func counts(t *testing.T, r *Reconciler, id string) EngagementCounts {
	t.Helper()
	vm, ok := r.Get(id)
	require.True(t, ok)
	return vm.EngagementCounts
}

func TestLikeIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	r := loaded(gw, alice, model("a", 3, 0, true))

	require.NoError(t, r.Like(context.Background(), "a"))
	assert.Equal(t, EngagementCounts{LikeCount: 3, ViewerHasLiked: true}, counts(t, r, "a"))
	assert.Zero(t, gw.callCount("insertLike"))

	r = loaded(gw, alice, model("b", 0, 0, false))
	require.NoError(t, r.Unlike(context.Background(), "b"))
	assert.Equal(t, EngagementCounts{}, counts(t, r, "b"))
	assert.Zero(t, gw.callCount("deleteLike"))
}

func TestLikeUnlikeRoundTrip(t *testing.T) {
	gw := newFakeGateway()
	r := loaded(gw, alice, model("a", 4, 2, false))
	before := counts(t, r, "a")
	ctx := context.Background()

	require.NoError(t, r.Like(ctx, "a"))
	assert.Equal(t, EngagementCounts{LikeCount: 5, CommentCount: 2, ViewerHasLiked: true}, counts(t, r, "a"))

	require.NoError(t, r.Unlike(ctx, "a"))
	assert.Equal(t, before, counts(t, r, "a"))
	assert.Equal(t, []string{"like:a", "unlike:a"}, gw.writeLog())
}

func TestToggleLike(t *testing.T) {
	gw := newFakeGateway()
	r := loaded(gw, alice, model("a", 0, 0, false))
	ctx := context.Background()

	require.NoError(t, r.ToggleLike(ctx, "a"))
	assert.True(t, counts(t, r, "a").ViewerHasLiked)
	require.NoError(t, r.ToggleLike(ctx, "a"))
	assert.False(t, counts(t, r, "a").ViewerHasLiked)
	assert.Equal(t, 0, counts(t, r, "a").LikeCount)
}

func TestLikeRollback(t *testing.T) {
	tests := []struct {
		name   string
		start  FeedViewModel
		act    func(*Reconciler) error
		kind   ActionKind
		inject func(*fakeGateway)
	}{
		{
			name:   "like",
			start:  model("a", 2, 1, false),
			act:    func(r *Reconciler) error { return r.Like(context.Background(), "a") },
			kind:   ActionLike,
			inject: func(gw *fakeGateway) { gw.failLike = errBoom },
		},
		{
			name:   "unlike",
			start:  model("a", 2, 1, true),
			act:    func(r *Reconciler) error { return r.Unlike(context.Background(), "a") },
			kind:   ActionUnlike,
			inject: func(gw *fakeGateway) { gw.failUnlike = errBoom },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			tt.inject(gw)
			r := loaded(gw, alice, tt.start)
			before := counts(t, r, "a")

			err := tt.act(r)
			require.Error(t, err)
			assert.True(t, IsActionFailed(err, tt.kind))
			assert.ErrorIs(t, err, errBoom)

			var gwErr *GatewayError
			assert.ErrorAs(t, err, &gwErr)
			assert.Equal(t, before, counts(t, r, "a"))
		})
	}
}

func TestUnlikeNeverGoesNegative(t *testing.T) {
	gw := newFakeGateway()
	r := loaded(gw, alice, model("a", 0, 0, true))

	require.NoError(t, r.Unlike(context.Background(), "a"))
	assert.Equal(t, EngagementCounts{}, counts(t, r, "a"))
}

func TestMutationsRequireViewer(t *testing.T) {
	for _, viewer := range []*Viewer{nil, {}} {
		gw := newFakeGateway()
		r := loaded(gw, viewer, model("a", 1, 1, true))
		ctx := context.Background()

		assert.ErrorIs(t, r.Like(ctx, "a"), ErrAuthRequired)
		assert.ErrorIs(t, r.Unlike(ctx, "a"), ErrAuthRequired)
		assert.ErrorIs(t, r.ToggleLike(ctx, "a"), ErrAuthRequired)

		_, err := r.AddComment(ctx, "a", "hello")
		assert.ErrorIs(t, err, ErrAuthRequired)
		_, err = r.AddComment(ctx, "a", "   ")
		assert.ErrorIs(t, err, ErrAuthRequired, "auth is checked before content")

		assert.Zero(t, gw.totalCalls())
		assert.Equal(t, EngagementCounts{LikeCount: 1, CommentCount: 1}, counts(t, r, "a"),
			"anonymous viewers never carry a like flag")
	}
}

func TestUnknownListing(t *testing.T) {
	r := loaded(newFakeGateway(), alice)
	assert.ErrorIs(t, r.Like(context.Background(), "missing"), ErrUnknownListing)
	_, err := r.AddComment(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, ErrUnknownListing)
}

func TestAddCommentRejectsEmptyContent(t *testing.T) {
	gw := newFakeGateway()
	r := loaded(gw, alice, model("a", 0, 0, false))

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := r.AddComment(context.Background(), "a", text)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, ReasonEmptyContent, vErr.Reason)
	}
	assert.Zero(t, gw.totalCalls())
	assert.Equal(t, 0, counts(t, r, "a").CommentCount)
}

func TestAddCommentRefreshesExpandedThread(t *testing.T) {
	gw := newFakeGateway()
	gw.profiles["alice"] = ProfileSummary{UserID: "alice", DisplayName: "Alice"}
	r := loaded(gw, alice, model("a", 0, 0, false))
	ctx := context.Background()

	thread, err := r.ExpandComments(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, thread)

	c, err := r.AddComment(ctx, "a", "  found it near the station  ")
	require.NoError(t, err)
	assert.Equal(t, "found it near the station", c.Content)
	assert.Equal(t, 1, counts(t, r, "a").CommentCount)

	cached, ok := r.Comments("a")
	require.True(t, ok)
	require.Len(t, cached, 1)
	assert.Equal(t, "found it near the station", cached[0].Content)
	require.NotNil(t, cached[0].Author)
	assert.Equal(t, "Alice", cached[0].Author.DisplayName)

	r.CollapseComments("a")
	_, ok = r.Comments("a")
	assert.False(t, ok)

	listCalls := gw.callCount("listComments")
	_, err = r.AddComment(ctx, "a", "second")
	require.NoError(t, err)
	assert.Equal(t, listCalls, gw.callCount("listComments"), "collapsed threads are not refetched")
}

func TestAddCommentRollback(t *testing.T) {
	gw := newFakeGateway()
	gw.failComment = errBoom
	r := loaded(gw, alice, model("a", 1, 5, true))

	_, err := r.AddComment(context.Background(), "a", "hello")
	assert.True(t, IsActionFailed(err, ActionComment))
	assert.Equal(t, EngagementCounts{LikeCount: 1, CommentCount: 5, ViewerHasLiked: true}, counts(t, r, "a"))
}

func gated(gw *fakeGateway) (release func()) {
	gw.likeGate = make(chan struct{})
	gw.likeEntered = make(chan string, 8)
	var once sync.Once
	return func() { once.Do(func() { close(gw.likeGate) }) }
}

func waitEntered(t *testing.T, gw *fakeGateway) {
	t.Helper()
	select {
	case <-gw.likeEntered:
	case <-time.After(2 * time.Second):
		t.Fatal("like write never reached the gateway")
	}
}

func TestRapidTogglesConverge(t *testing.T) {
	gw := newFakeGateway()
	release := gated(gw)
	defer release()
	r := loaded(gw, alice, model("a", 3, 0, false))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = r.Like(ctx, "a")
	}()
	waitEntered(t, gw)

	// The like is in flight; the displayed state already shows it
	assert.Equal(t, EngagementCounts{LikeCount: 4, ViewerHasLiked: true}, counts(t, r, "a"))

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[1] = r.Unlike(ctx, "a")
	}()
	require.Eventually(t, func() bool {
		vm, _ := r.Get("a")
		return !vm.ViewerHasLiked
	}, time.Second, time.Millisecond)
	assert.Equal(t, 3, counts(t, r, "a").LikeCount)

	release()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, EngagementCounts{LikeCount: 3, ViewerHasLiked: false}, counts(t, r, "a"))
	assert.Equal(t, []string{"like:a", "unlike:a"}, gw.writeLog(), "writes reach the gateway in issue order")
	assert.False(t, gw.likes["a"]["alice"])
}

func TestFailedLikeUnderPendingUnlike(t *testing.T) {
	gw := newFakeGateway()
	gw.failLike = errBoom
	release := gated(gw)
	defer release()
	r := loaded(gw, alice, model("a", 3, 0, false))
	ctx := context.Background()

	var wg sync.WaitGroup
	var likeErr, unlikeErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		likeErr = r.Like(ctx, "a")
	}()
	waitEntered(t, gw)

	wg.Add(1)
	go func() {
		defer wg.Done()
		unlikeErr = r.Unlike(ctx, "a")
	}()
	require.Eventually(t, func() bool {
		vm, _ := r.Get("a")
		return !vm.ViewerHasLiked
	}, time.Second, time.Millisecond)

	release()
	wg.Wait()

	assert.True(t, IsActionFailed(likeErr, ActionLike))
	assert.NoError(t, unlikeErr)
	assert.Equal(t, EngagementCounts{LikeCount: 3}, counts(t, r, "a"))
}

func TestCommentWhileLikeInFlight(t *testing.T) {
	gw := newFakeGateway()
	release := gated(gw)
	defer release()
	r := loaded(gw, alice, model("a", 0, 0, false))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- r.Like(ctx, "a") }()
	waitEntered(t, gw)

	_, err := r.AddComment(ctx, "a", "is it still there?")
	require.NoError(t, err)
	assert.Equal(t, EngagementCounts{LikeCount: 1, CommentCount: 1, ViewerHasLiked: true}, counts(t, r, "a"))

	release()
	require.NoError(t, <-done)
	assert.Equal(t, EngagementCounts{LikeCount: 1, CommentCount: 1, ViewerHasLiked: true}, counts(t, r, "a"))
}

func TestCancelledWaitFailsWithoutWriting(t *testing.T) {
	gw := newFakeGateway()
	release := gated(gw)
	defer release()
	r := loaded(gw, alice, model("a", 0, 0, false))

	done := make(chan error, 1)
	go func() { done <- r.Like(context.Background(), "a") }()
	waitEntered(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Unlike(ctx, "a")
	assert.True(t, IsActionFailed(err, ActionUnlike))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, counts(t, r, "a").ViewerHasLiked)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, EngagementCounts{LikeCount: 1, ViewerHasLiked: true}, counts(t, r, "a"))
	assert.Zero(t, gw.callCount("deleteLike"))
}

func TestLateResultDiscardedAfterReload(t *testing.T) {
	gw := newFakeGateway()
	release := gated(gw)
	defer release()
	r := loaded(gw, alice, model("a", 0, 0, false))

	done := make(chan error, 1)
	go func() { done <- r.Like(context.Background(), "a") }()
	waitEntered(t, gw)

	r.Load([]FeedViewModel{model("a", 7, 2, false)})
	release()
	require.NoError(t, <-done)

	assert.Equal(t, EngagementCounts{LikeCount: 7, CommentCount: 2}, counts(t, r, "a"))
}

func TestResetDropsFeed(t *testing.T) {
	r := loaded(newFakeGateway(), alice, model("a", 0, 0, false), model("b", 0, 0, false))
	require.Len(t, r.Snapshot(), 2)

	r.Reset()
	assert.Empty(t, r.Snapshot())
	_, ok := r.Get("a")
	assert.False(t, ok)
}

func TestLoadNormalizesCounts(t *testing.T) {
	r := loaded(newFakeGateway(), alice, model("a", -2, -1, false), model("a", 9, 9, false), model("b", 1, 0, true))

	snap := r.Snapshot()
	assert.Equal(t, []string{"a", "b"}, ids(snap))
	assert.Equal(t, EngagementCounts{}, snap[0].EngagementCounts)
	assert.True(t, snap[1].ViewerHasLiked)
}

func TestUpsertKeepsOrder(t *testing.T) {
	r := loaded(newFakeGateway(), alice, model("a", 0, 0, false))
	r.Upsert(model("b", 1, 0, false))
	r.Upsert(model("a", 5, 0, false))

	snap := r.Snapshot()
	assert.Equal(t, []string{"a", "b"}, ids(snap))
	assert.Equal(t, 5, snap[0].LikeCount)
}
