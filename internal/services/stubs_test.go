package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/markdave123-py/mediasearch/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubEmbedder struct {
	mu         sync.Mutex
	textCalls  int
	imageCalls int
	videoCalls int
	lastVideo  string
	vec        []float32
	segs       []models.VideoSegmentEmbedding
	err        error
	block      bool
}

func (s *stubEmbedder) EmbedText(ctx context.Context, _ string) ([]float32, error) {
	s.mu.Lock()
	s.textCalls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.vec, s.err
}

func (s *stubEmbedder) EmbedImage(_ context.Context, _ string) ([]float32, error) {
	s.mu.Lock()
	s.imageCalls++
	s.mu.Unlock()
	return s.vec, s.err
}

func (s *stubEmbedder) EmbedVideo(_ context.Context, b64 string, _ *models.VideoSegmentConfig) ([]models.VideoSegmentEmbedding, error) {
	s.mu.Lock()
	s.videoCalls++
	s.lastVideo = b64
	s.mu.Unlock()
	return s.segs, s.err
}

// memIndex is an in-memory VectorIndex keyed by id.
type memIndex struct {
	mu        sync.Mutex
	records   map[string]models.IndexRecord
	matches   []models.RawMatch
	queryErr  error
	upsertErr error
	lastTopK  int
	upserts   int
}

func newMemIndex(records ...models.IndexRecord) *memIndex {
	idx := &memIndex{records: map[string]models.IndexRecord{}}
	for _, r := range records {
		idx.records[r.ID] = r
	}
	return idx
}

func (m *memIndex) Upsert(_ context.Context, records []models.IndexRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *memIndex) Query(_ context.Context, _ []float32, topK int, _ bool) ([]models.RawMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTopK = topK
	return m.matches, m.queryErr
}

func (m *memIndex) ListIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.records {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memIndex) Fetch(_ context.Context, ids []string) ([]models.IndexRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.IndexRecord
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
