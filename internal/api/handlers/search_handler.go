package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/markdave123-py/mediasearch/internal/models"
)

// MaxUploadBytes bounds multipart bodies. Videos are size-checked again after encoding.
const MaxUploadBytes = 64 << 20

// Searcher is the query side the handlers depend on.
type Searcher interface {
	SearchText(ctx context.Context, query string) (*models.SearchResponse, error)
	SearchImage(ctx context.Context, data []byte) (*models.SearchResponse, error)
	SearchVideo(ctx context.Context, r io.Reader, filename string) (*models.SearchResponse, error)
}

type SearchHandler struct {
	search Searcher
	logger *slog.Logger
}

func NewSearchHandler(search Searcher, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{search: search, logger: logger}
}

type textQuery struct {
	Query string `json:"query"`
}

// SearchText handles POST /search/text with body {"query": "..."}.
func (h *SearchHandler) SearchText(w http.ResponseWriter, r *http.Request) {
	var req textQuery
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, r, h.logger, fmt.Errorf("invalid request body: %w", err))
		return
	}

	resp, err := h.search.SearchText(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// SearchImage handles POST /search/image with a multipart "file" field.
func (h *SearchHandler) SearchImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, uploadError(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("read upload: %w", err))
		return
	}

	resp, err := h.search.SearchImage(r.Context(), data)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// SearchVideo handles POST /search/video with a multipart "file" field.
func (h *SearchHandler) SearchVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, uploadError(err))
		return
	}
	defer file.Close()

	resp, err := h.search.SearchVideo(r.Context(), file, header.Filename)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func uploadError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return fmt.Errorf("upload exceeds %d MB", MaxUploadBytes>>20)
	}
	return fmt.Errorf("a multipart \"file\" field is required: %w", err)
}
