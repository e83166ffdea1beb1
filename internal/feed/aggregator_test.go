package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenListings(gw *fakeGateway) []Listing {
	var out []Listing
	for i := 0; i < 10; i++ {
		l := listing(fmt.Sprintf("l%d", i), KindLost, "Item", time.Duration(i)*time.Minute)
		gw.listings = append(gw.listings, l)
		gw.profiles[l.AuthorID] = ProfileSummary{UserID: l.AuthorID, DisplayName: "Author " + l.ID}
		gw.likes[l.ID] = map[string]bool{"other": true}
		if i%2 == 0 {
			gw.likes[l.ID]["viewer"] = true
		}
		out = append(out, l)
	}
	return out
}

func TestAggregatePreservesOrder(t *testing.T) {
	gw := newFakeGateway()
	listings := tenListings(gw)
	// Reverse so input order differs from creation order
	for i, j := 0, len(listings)-1; i < j; i, j = i+1, j-1 {
		listings[i], listings[j] = listings[j], listings[i]
	}

	out := NewAggregator(NewFetcher(gw), WithFanOut(3)).Aggregate(context.Background(), listings, &Viewer{UserID: "viewer"})
	require.Len(t, out, len(listings))
	for i := range listings {
		assert.Equal(t, listings[i].ID, out[i].ID)
		require.NotNil(t, out[i].Profile)
		assert.Equal(t, listings[i].AuthorID, out[i].Profile.UserID)
	}
}

func TestAggregatePerRowIsolation(t *testing.T) {
	gw := newFakeGateway()
	listings := tenListings(gw)
	gw.failProfile[listings[4].AuthorID] = true
	viewer := &Viewer{UserID: "viewer"}

	out := NewAggregator(NewFetcher(gw)).Aggregate(context.Background(), listings, viewer)
	require.Len(t, out, 10)

	for i, vm := range out {
		if i == 4 {
			assert.Nil(t, vm.Profile, "failed profile lookup must degrade to absent")
		} else {
			require.NotNil(t, vm.Profile)
			assert.Equal(t, "Author "+vm.ID, vm.Profile.DisplayName)
		}
		// Counts are unaffected by the profile failure
		want := 1
		if i%2 == 0 {
			want = 2
		}
		assert.Equal(t, want, vm.LikeCount)
		assert.Equal(t, i%2 == 0, vm.ViewerHasLiked)
	}
}

func TestAggregateCountFailureDegradesToZero(t *testing.T) {
	gw := newFakeGateway()
	listings := tenListings(gw)
	gw.failCounts[listings[0].ID] = true

	out := NewAggregator(NewFetcher(gw)).Aggregate(context.Background(), listings, nil)
	assert.Equal(t, 0, out[0].LikeCount)
	assert.Equal(t, 0, out[0].CommentCount)
	assert.Equal(t, 1, out[1].LikeCount)
	for _, vm := range out {
		assert.False(t, vm.ViewerHasLiked, "anonymous viewers never have likes")
		assert.GreaterOrEqual(t, vm.LikeCount, 0)
		assert.GreaterOrEqual(t, vm.CommentCount, 0)
	}
	assert.Zero(t, gw.callCount("hasLiked"))
}

func TestAggregateBatched(t *testing.T) {
	gw := newFakeGateway()
	listings := tenListings(gw)
	bgw := &batchGateway{fakeGateway: gw}

	out := NewAggregator(NewFetcher(bgw)).Aggregate(context.Background(), listings, &Viewer{UserID: "viewer"})
	require.Len(t, out, 10)

	assert.Equal(t, 1, gw.callCount("getProfiles"))
	assert.Equal(t, 1, gw.callCount("countEngagement"))
	assert.Equal(t, 1, gw.callCount("likedSet"))
	assert.Zero(t, gw.callCount("getProfile"))
	assert.Zero(t, gw.callCount("countLikes"))

	for i, vm := range out {
		assert.Equal(t, listings[i].ID, vm.ID)
		require.NotNil(t, vm.Profile)
		assert.Equal(t, vm.AuthorID, vm.Profile.UserID)
		assert.Equal(t, i%2 == 0, vm.ViewerHasLiked)
	}
}

func TestAggregateBatchFailureFallsBack(t *testing.T) {
	gw := newFakeGateway()
	listings := tenListings(gw)
	bgw := &batchGateway{fakeGateway: gw, failBatchProfiles: true}

	out := NewAggregator(NewFetcher(bgw)).Aggregate(context.Background(), listings, &Viewer{UserID: "viewer"})

	assert.Equal(t, 10, gw.callCount("getProfile"))
	assert.Zero(t, gw.callCount("countLikes"), "counts came from the batch")
	for _, vm := range out {
		require.NotNil(t, vm.Profile)
	}
}

func TestAggregateEmpty(t *testing.T) {
	gw := newFakeGateway()
	out := NewAggregator(NewFetcher(gw)).Aggregate(context.Background(), nil, nil)
	assert.Empty(t, out)
	assert.Zero(t, gw.totalCalls())
}
