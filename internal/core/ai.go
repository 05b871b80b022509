package core

import (
	"context"

	"github.com/markdave123-py/mediasearch/internal/models"
)

// EmbeddingProvider turns a (modality, payload) pair into vectors.
// Image and video payloads are base64 encoded, as the model endpoint expects them.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, imageBase64 string) ([]float32, error)

	// EmbedVideo returns one embedding per segment. A nil cfg lets the model pick the windows.
	EmbedVideo(ctx context.Context, videoBase64 string, cfg *models.VideoSegmentConfig) ([]models.VideoSegmentEmbedding, error)
}
