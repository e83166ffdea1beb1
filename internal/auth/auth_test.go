package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lostfound/community/internal/feed"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.Issue("user-1", "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	viewer, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if viewer.UserID != "user-1" || viewer.Email != "a@example.com" {
		t.Errorf("Verify() = %+v", viewer)
	}
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("secret")
	expired := NewVerifier("secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Issue("user-1", "", time.Hour)
	otherKey, _ := NewVerifier("other").Issue("user-1", "", time.Hour)
	noSubject, _ := v.Issue("", "", time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expiredToken},
		{"wrong key", otherKey},
		{"no subject", noSubject},
		{"alg none", none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifier("secret")
	token, _ := v.Issue("user-1", "", time.Hour)

	router := gin.New()
	router.Use(Middleware(v))
	router.GET("/", func(c *gin.Context) {
		viewer, _ := ContextSource{}.CurrentViewer(c)
		c.String(http.StatusOK, viewer.ID())
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"valid", "Bearer " + token, http.StatusOK, "user-1"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"malformed", "Basic abc", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusOK && w.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("empty context should be anonymous")
	}
	viewer := &feed.Viewer{UserID: "u"}
	if got := FromContext(WithViewer(context.Background(), viewer)); got != viewer {
		t.Errorf("FromContext() = %v, want %v", got, viewer)
	}
}
