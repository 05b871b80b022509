package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/markdave123-py/mediasearch/internal/core"
	"github.com/markdave123-py/mediasearch/internal/models"
)

// MaxVideoBase64Len caps the encoded video payload sent to the embedding endpoint (~20 MB raw).
const MaxVideoBase64Len = 27_000_000

var (
	ErrEmptyQuery             = errors.New("the query text cannot be empty")
	ErrUnsupportedImageFormat = errors.New("unsupported image format: only BMP, GIF, JPG, JPEG and PNG are accepted")
	ErrVideoTooLarge          = errors.New("videos larger than 20 MB are not supported, please upload a smaller video")
)

// allowed image containers, keyed by sniffed content type
var imageFormats = map[string]string{
	"image/bmp":  "bmp",
	"image/gif":  "gif",
	"image/jpeg": "jpeg",
	"image/png":  "png",
}

type SearchConfig struct {
	TopK         int
	QueryTimeout time.Duration
	ScratchDir   string
}

type SearchService struct {
	embedder core.EmbeddingProvider
	index    core.VectorIndex
	enricher *Enricher
	cfg      SearchConfig
	logger   *slog.Logger
}

func NewSearchService(embedder core.EmbeddingProvider, index core.VectorIndex, enricher *Enricher, cfg SearchConfig, logger *slog.Logger) *SearchService {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 60 * time.Second
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{embedder: embedder, index: index, enricher: enricher, cfg: cfg, logger: logger}
}

func (s *SearchService) SearchText(ctx context.Context, query string) (*models.SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	vec, err := s.embed(ctx, "embed text", func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedText(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return s.search(ctx, models.FileTypeText, vec)
}

func (s *SearchService) SearchImage(ctx context.Context, data []byte) (*models.SearchResponse, error) {
	if _, err := DetectImageFormat(data); err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	vec, err := s.embed(ctx, "embed image", func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedImage(ctx, encoded)
	})
	if err != nil {
		return nil, err
	}
	return s.search(ctx, models.FileTypeImage, vec)
}

// SearchVideo buffers the upload to a scratch file that is removed on every return path.
func (s *SearchService) SearchVideo(ctx context.Context, r io.Reader, filename string) (*models.SearchResponse, error) {
	f, err := os.CreateTemp(s.cfg.ScratchDir, "video-*"+scratchExt(filename))
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		_ = f.Close()
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("scratch file not removed", "path", f.Name(), "error", err)
		}
	}()

	size, err := io.Copy(f, r)
	if err != nil {
		return nil, fmt.Errorf("buffer upload: %w", err)
	}
	if err := CheckVideoSize(base64.StdEncoding.EncodedLen(int(size))); err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind scratch file: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(base64.StdEncoding.EncodedLen(int(size)))
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, f); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	encoded := buf.String()

	vec, err := s.embed(ctx, "embed video", func(ctx context.Context) ([]float32, error) {
		segs, err := s.embedder.EmbedVideo(ctx, encoded, nil)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			return nil, errors.New("no video embeddings returned")
		}
		return segs[0].Embedding, nil
	})
	if err != nil {
		return nil, err
	}
	return s.search(ctx, models.FileTypeVideo, vec)
}

// DetectImageFormat sniffs the container from magic bytes and reports the allowed format name.
func DetectImageFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrUnsupportedImageFormat
	}
	format, ok := imageFormats[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedImageFormat
	}
	return format, nil
}

// CheckVideoSize rejects encoded payloads longer than MaxVideoBase64Len.
func CheckVideoSize(encodedLen int) error {
	if encodedLen > MaxVideoBase64Len {
		return fmt.Errorf("%w (%d base64 characters)", ErrVideoTooLarge, encodedLen)
	}
	return nil
}

func (s *SearchService) embed(ctx context.Context, stage string, fn func(context.Context) ([]float32, error)) ([]float32, error) {
	ctxEmbed, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	vec, err := fn(ctxEmbed)
	if err != nil {
		return nil, s.stageError(stage, err)
	}
	return vec, nil
}

func (s *SearchService) search(ctx context.Context, kind models.FileType, vec []float32) (*models.SearchResponse, error) {
	start := time.Now()

	ctxQuery, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	matches, err := s.index.Query(ctxQuery, vec, s.cfg.TopK, true)
	if err != nil {
		return nil, s.stageError("query index", err)
	}

	results := s.enricher.EnrichAll(matches)
	s.logger.Info("search completed",
		"modality", kind,
		"results", len(results),
		"query_ms", time.Since(start).Milliseconds(),
	)
	return &models.SearchResponse{Results: results}, nil
}

func (s *SearchService) stageError(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: timed out after %s: %w", stage, s.cfg.QueryTimeout, err)
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func scratchExt(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\*`) {
		return ""
	}
	return ext
}
