package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostfound/community/internal/auth"
	"github.com/lostfound/community/internal/db"
	"github.com/lostfound/community/internal/db/dbtest"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/internal/models"
	"github.com/lostfound/community/pkg/config"
)

const testSecret = "test-secret"

type stubUploader struct{}

func (stubUploader) UploadImage(_ context.Context, data []byte, _ string) (string, error) {
	return "https://img.example/" + string(data) + ".png", nil
}

type testServer struct {
	engine *gin.Engine
	db     *db.DB
	wallet *models.Item
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d := dbtest.New(t)
	ctx := context.Background()
	repo := db.NewRepository(d.DB)
	require.NoError(t, db.NewCategoryRepository(repo).Create(ctx, &models.Category{Name: "Keys"}))
	require.NoError(t, db.NewProfileRepository(repo).Create(ctx, &models.Profile{UserID: "ada", FullName: db.NullString("Ada Lovelace")}))
	wallet := &models.Item{
		UserID: "ada", Type: "lost", Title: "Blue Wallet",
		Description: "Blue leather wallet", Status: models.ItemStatusActive,
	}
	require.NoError(t, db.NewItemRepository(repo).Create(ctx, wallet))

	cfg := &config.Config{
		Auth:  config.AuthConfig{JWTSecret: testSecret},
		Feed:  config.FeedConfig{PageSize: 20, FanOut: 4, LookupTimeout: time.Second},
		Stats: config.StatsConfig{TTL: time.Minute},
	}
	engine := gin.New()
	NewRouter(cfg, d, nil, stubUploader{}).SetupRoutes(engine)

	token, err := auth.NewVerifier(testSecret).Issue("bob", "bob@example.com", time.Hour)
	require.NoError(t, err)

	return &testServer{engine: engine, db: d, wallet: wallet, token: token}
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *JSONRPCError   `json:"error"`
}

func (s *testServer) post(t *testing.T, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) call(t *testing.T, token, method string, params interface{}) rpcResponse {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	w := s.post(t, token, string(body))
	require.Equal(t, http.StatusOK, w.Code)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) result(t *testing.T, token, method string, params interface{}, dest interface{}) {
	t.Helper()
	resp := s.call(t, token, method, params)
	require.Nil(t, resp.Error, "%s failed: %+v", method, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, dest))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health", "/.well-known/healthcheck.json"} {
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestProtocolErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{`, ErrParseError},
		{"bad version", `{"jsonrpc":"1.0","id":1,"method":"feed.get_feed"}`, ErrInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"feed.nope"}`, ErrMethodNotFound},
		{"bad params", `{"jsonrpc":"2.0","id":1,"method":"feed.get_listing","params":{"id":5}}`, ErrInvalidParams},
		{"missing param", `{"jsonrpc":"2.0","id":1,"method":"feed.get_listing","params":{}}`, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.post(t, "", tt.body)
			var resp rpcResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t)
	w := s.post(t, "garbage", `{"jsonrpc":"2.0","id":1,"method":"feed.get_feed"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeedInteraction(t *testing.T) {
	s := newTestServer(t)
	id := s.wallet.ID

	var page []feed.FeedViewModel
	s.result(t, "", "feed.get_feed", nil, &page)
	require.Len(t, page, 1)
	assert.Equal(t, id, page[0].ID)
	require.NotNil(t, page[0].Profile)
	assert.Equal(t, "Ada Lovelace", page[0].Profile.DisplayName)
	assert.False(t, page[0].ViewerHasLiked)

	resp := s.call(t, "", "feed.insert_like", map[string]string{"listing_id": id})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrAuthRequired, resp.Error.Code)

	var ok bool
	s.result(t, s.token, "feed.insert_like", map[string]string{"listing_id": id}, &ok)
	assert.True(t, ok)

	s.result(t, s.token, "feed.get_feed", map[string]string{"q": "wallet"}, &page)
	require.Len(t, page, 1)
	assert.True(t, page[0].ViewerHasLiked)
	assert.Equal(t, 1, page[0].LikeCount)

	s.result(t, s.token, "feed.get_feed", map[string]string{"kind": "found"}, &page)
	assert.Empty(t, page)

	var liked []string
	s.result(t, s.token, "feed.liked_set", map[string][]string{"listing_ids": {id, "other"}}, &liked)
	assert.Equal(t, []string{id}, liked)

	resp = s.call(t, s.token, "feed.insert_like", map[string]string{"listing_id": "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrNotFound, resp.Error.Code)
}

func TestComments(t *testing.T) {
	s := newTestServer(t)
	id := s.wallet.ID

	resp := s.call(t, s.token, "feed.insert_comment", map[string]string{"listing_id": id, "content": "   "})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrInvalidParams, resp.Error.Code)
	data, _ := json.Marshal(resp.Error.Data)
	var vd ValidationData
	require.NoError(t, json.Unmarshal(data, &vd))
	assert.Equal(t, "content", vd.Field)
	assert.Equal(t, feed.ReasonEmptyContent, vd.Reason)

	var comment feed.Comment
	s.result(t, s.token, "feed.insert_comment", map[string]string{"listing_id": id, "content": "Seen it at the cafe"}, &comment)
	assert.Equal(t, "bob", comment.AuthorID)

	var item feed.ItemDetail
	s.result(t, "", "feed.get_item", map[string]string{"id": id}, &item)
	assert.Equal(t, 1, item.CommentCount)
	require.Len(t, item.Comments, 1)
	assert.Equal(t, "Seen it at the cafe", item.Comments[0].Content)

	resp = s.call(t, "", "feed.get_item", map[string]string{"id": "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrNotFound, resp.Error.Code)
}

func TestListingsAndProfile(t *testing.T) {
	s := newTestServer(t)

	params := map[string]interface{}{
		"kind":            "found",
		"title":           "Silver Keys",
		"description":     "Found by the park entrance",
		"tags":            "keys, silver",
		"date_lost_found": "2024-05-01",
		"images":          []map[string]string{{"data": base64.StdEncoding.EncodeToString([]byte("k1"))}},
	}
	var created feed.Listing
	s.result(t, s.token, "listings.create", params, &created)
	assert.Equal(t, feed.KindFound, created.Kind)
	assert.Equal(t, []string{"https://img.example/k1.png"}, created.Images)
	assert.Equal(t, []string{"keys", "silver"}, created.Tags)
	require.NotNil(t, created.DateLostFound)

	params["title"] = "ab"
	resp := s.call(t, s.token, "listings.create", params)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrInvalidParams, resp.Error.Code)

	var mine []feed.Listing
	s.result(t, s.token, "listings.mine", nil, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	var profile struct {
		UserID   string `json:"user_id"`
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	}
	s.result(t, s.token, "profiles.update", map[string]string{"full_name": "Bob Builder", "phone": "555"}, &profile)
	assert.Equal(t, "bob", profile.UserID)
	assert.Equal(t, "Bob Builder", profile.FullName)
	assert.Equal(t, "555", profile.Phone)

	resp = s.call(t, "", "profiles.me", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrAuthRequired, resp.Error.Code)
}

func TestCommunity(t *testing.T) {
	s := newTestServer(t)

	var categories []feed.Category
	s.result(t, "", "categories.list", nil, &categories)
	require.Len(t, categories, 1)
	assert.Equal(t, "Keys", categories[0].Name)

	var stats struct {
		TotalItems       int64 `json:"total_items"`
		ActiveItems      int64 `json:"active_items"`
		CommunityMembers int64 `json:"community_members"`
	}
	s.result(t, "", "stats.community", nil, &stats)
	assert.Equal(t, int64(1), stats.TotalItems)
	assert.Equal(t, int64(1), stats.ActiveItems)
	assert.Equal(t, int64(1), stats.CommunityMembers)

	var viewer *feed.Viewer
	s.result(t, s.token, "feed.current_viewer", nil, &viewer)
	require.NotNil(t, viewer)
	assert.Equal(t, "bob", viewer.UserID)
}
