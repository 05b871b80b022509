package core

import (
	"context"

	"github.com/markdave123-py/mediasearch/internal/models"
)

// VectorIndex is the nearest-neighbour store holding media embeddings.
// It abstracts pgvector so higher layers never depend on a specific index.
type VectorIndex interface {
	Upsert(ctx context.Context, records []models.IndexRecord) error
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.RawMatch, error)

	// ListIDs pages through record ids in ascending order, starting after afterID.
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	Fetch(ctx context.Context, ids []string) ([]models.IndexRecord, error)
}

// ObjectClient defines the reads the system needs from object storage.
type ObjectClient interface {
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]models.ObjectInfo, error)
}
