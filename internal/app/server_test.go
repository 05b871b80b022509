package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/mediasearch/internal/config"
	"github.com/markdave123-py/mediasearch/internal/models"
)

type stubSearcher struct{ texts []string }

func (s *stubSearcher) SearchText(_ context.Context, q string) (*models.SearchResponse, error) {
	s.texts = append(s.texts, q)
	return &models.SearchResponse{Results: []models.QueryMatch{}}, nil
}

func (s *stubSearcher) SearchImage(context.Context, []byte) (*models.SearchResponse, error) {
	return &models.SearchResponse{Results: []models.QueryMatch{}}, nil
}

func (s *stubSearcher) SearchVideo(context.Context, io.Reader, string) (*models.SearchResponse, error) {
	return &models.SearchResponse{Results: []models.QueryMatch{}}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testRouter(search *stubSearcher) http.Handler {
	cfg := &config.Config{
		Port:           "0",
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"http://localhost:3000"},
	}
	return NewRouter(cfg, search, okPinger{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRouterMountsSearchAtRootAndAPIPrefix(t *testing.T) {
	search := &stubSearcher{}
	srv := httptest.NewServer(testRouter(search))
	defer srv.Close()

	for _, p := range []string{"/search/text", "/api/v1/search/text"} {
		resp, err := http.Post(srv.URL+p, "application/json", strings.NewReader(`{"query":"socks"}`))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
		assert.JSONEq(t, `{"results":[]}`, string(body), p)
	}
	assert.Equal(t, []string{"socks", "socks"}, search.texts)
}

func TestRouterHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(&stubSearcher{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(&stubSearcher{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/text", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/search/image", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	testRouter(&stubSearcher{}).ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
