package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"teraBridgeBot/internal/config"
	"teraBridgeBot/internal/logger"
	"teraBridgeBot/internal/token"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, ttl time.Duration) (*Server, *token.Issuer) {
	t.Helper()
	issuer := token.NewIssuer("test-secret", ttl)
	cfg := &config.Configuration{Port: "0"}
	log := logger.New(io.Discard, "", logger.FATAL, false)
	return NewServer(cfg, issuer, log), issuer
}

func testRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/watch", s.handleWatch).Methods(http.MethodGet)
	r.HandleFunc("/ws/{chatID}", s.handleWebSocket)
	return r
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, time.Hour)

	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleWatchRequiresToken(t *testing.T) {
	s, _ := newTestServer(t, time.Hour)

	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/watch", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
	assert.Contains(t, rec.Body.String(), "requires an access token")
}

func TestHandleWatchRejectsUnknownToken(t *testing.T) {
	s, _ := newTestServer(t, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/watch?token=deadbeef&name=x.mp4", nil)
	testRouter(s).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not valid")
}

func TestHandleWatchRendersPlayer(t *testing.T) {
	s, issuer := newTestServer(t, time.Hour)

	tok, err := issuer.Issue(42, "https://cdn.example/clip.mp4")
	require.NoError(t, err)

	target := "/watch?token=" + tok +
		"&name=" + url.QueryEscape("clip.mp4") +
		"&size=" + url.QueryEscape("1.2 GB") +
		"&source=" + url.QueryEscape("terabox.com") +
		"&alt=" + url.QueryEscape("https://fast.example/clip.mp4")
	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "clip.mp4")
	// The playable URL comes from the grant, never from the query string.
	assert.Contains(t, body, "https://cdn.example/clip.mp4")
	assert.Contains(t, body, "https://fast.example/clip.mp4")
	// File metadata renders alongside the name.
	assert.Contains(t, body, "1.2 GB")
	assert.Contains(t, body, "via terabox.com")
}

func TestHandleWatchMissingName(t *testing.T) {
	s, issuer := newTestServer(t, time.Hour)

	tok, err := issuer.Issue(42, "https://cdn.example/clip.mp4")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/watch?token="+tok, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebSocketInvalidChatID(t *testing.T) {
	s, _ := newTestServer(t, time.Hour)

	rec := httptest.NewRecorder()
	testRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/not-a-number", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
