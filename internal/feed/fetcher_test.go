package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchListingPage(t *testing.T) {
	claimed := listing("c", KindFound, "Umbrella", time.Minute)
	claimed.Status = StatusClaimed

	gw := newFakeGateway(
		listing("old", KindLost, "Scarf", 3*time.Hour),
		claimed,
		listing("new", KindFound, "Phone", time.Hour),
	)
	f := NewFetcher(gw)

	got, err := f.FetchListingPage(context.Background(), Page{})
	require.NoError(t, err)

	var names []string
	for _, l := range got {
		names = append(names, l.ID)
		assert.Equal(t, StatusActive, l.Status)
	}
	assert.Equal(t, []string{"new", "old"}, names)
}

func TestFetchListingPageGatewayError(t *testing.T) {
	gw := newFakeGateway(listing("a", KindLost, "Wallet", 0))
	gw.failList = errBoom

	got, err := NewFetcher(gw).FetchListingPage(context.Background(), Page{Limit: 10})
	assert.Nil(t, got)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "listListings", gwErr.Op)
	assert.ErrorIs(t, err, errBoom)
}

func TestFetchProfileSummary(t *testing.T) {
	gw := newFakeGateway()
	gw.profiles["u1"] = ProfileSummary{UserID: "u1", DisplayName: "Ada"}
	gw.profiles["u2"] = ProfileSummary{UserID: "someone-else", DisplayName: "Mallory"}
	f := NewFetcher(gw)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		want   *ProfileSummary
	}{
		{"present", "u1", &ProfileSummary{UserID: "u1", DisplayName: "Ada"}},
		{"absent", "nobody", nil},
		{"wrong user", "u2", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.FetchProfileSummary(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchEngagementCounts(t *testing.T) {
	gw := newFakeGateway()
	gw.likes["a"] = map[string]bool{"u1": true, "u2": true}
	gw.comments["a"] = []Comment{{ID: "c1"}}
	f := NewFetcher(gw)
	ctx := context.Background()

	counts, err := f.FetchEngagementCounts(ctx, "a", &Viewer{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, EngagementCounts{LikeCount: 2, CommentCount: 1, ViewerHasLiked: true}, counts)

	counts, err = f.FetchEngagementCounts(ctx, "empty", &Viewer{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, EngagementCounts{}, counts)

	t.Run("anonymous viewer skips like lookup", func(t *testing.T) {
		before := gw.callCount("hasLiked")
		counts, err := f.FetchEngagementCounts(ctx, "a", nil)
		require.NoError(t, err)
		assert.False(t, counts.ViewerHasLiked)
		assert.Equal(t, before, gw.callCount("hasLiked"))
	})
}

func TestFetchCommentsOrderedWithAuthors(t *testing.T) {
	gw := newFakeGateway()
	gw.profiles["u1"] = ProfileSummary{UserID: "u1", DisplayName: "Ada"}
	gw.comments["a"] = []Comment{
		{ID: "3", ListingID: "a", AuthorID: "u2", CreatedAt: baseTime.Add(3 * time.Minute)},
		{ID: "1", ListingID: "a", AuthorID: "u1", CreatedAt: baseTime.Add(time.Minute)},
		{ID: "2", ListingID: "a", AuthorID: "u1", CreatedAt: baseTime.Add(2 * time.Minute)},
	}

	for _, tc := range []struct {
		name string
		gw   Gateway
	}{
		{"per user", gw},
		{"batched", &batchGateway{fakeGateway: gw}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			comments, err := NewFetcher(tc.gw).FetchComments(context.Background(), "a")
			require.NoError(t, err)
			require.Len(t, comments, 3)

			for i := 1; i < len(comments); i++ {
				assert.False(t, comments[i].CreatedAt.Before(comments[i-1].CreatedAt))
			}
			assert.Equal(t, "1", comments[0].ID)
			require.NotNil(t, comments[0].Author)
			assert.Equal(t, "Ada", comments[0].Author.DisplayName)
			assert.Nil(t, comments[2].Author)
		})
	}
}

func TestFetchCommentsGatewayError(t *testing.T) {
	gw := newFakeGateway()
	gw.failComments = errBoom

	_, err := NewFetcher(gw).FetchComments(context.Background(), "a")
	var gwErr *GatewayError
	assert.True(t, errors.As(err, &gwErr))
}
