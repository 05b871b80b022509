package services

import (
	"github.com/markdave123-py/mediasearch/internal/models"
	objectclient "github.com/markdave123-py/mediasearch/internal/core/object-client"
)

const gcsPublicBase = "https://storage.googleapis.com/"

// Enricher turns raw index matches into client-facing results with a public link.
type Enricher struct {
	Bucket string
}

func NewEnricher(bucket string) *Enricher {
	return &Enricher{Bucket: bucket}
}

// NormalizeLocation reads whichever location fields a record carries.
// S3 fields win; legacy GCS fields are only used when both S3 fields are empty.
// The path falls back to the configured bucket so an S3 URL can still be built.
func NormalizeLocation(meta models.Metadata, bucket string) models.StorageLocator {
	loc := models.StorageLocator{
		Bucket:   bucket,
		FileName: firstNonEmpty(meta.S3FileName, meta.GCSFileName),
		Path:     firstNonEmpty(meta.S3FilePath, meta.GCSFilePath, bucket),
	}
	switch {
	case meta.HasS3():
		loc.Scheme = models.SchemeS3
	case meta.HasGCS():
		loc.Scheme = models.SchemeGCS
	default:
		loc.Scheme = models.SchemeNone
	}
	return loc
}

// Enrich never fails: missing location data yields an empty URL.
func (e *Enricher) Enrich(m models.RawMatch) models.QueryMatch {
	meta := m.Metadata
	loc := NormalizeLocation(meta, e.Bucket)

	var url string
	if loc.Scheme == models.SchemeS3 {
		url = objectclient.PublicURL(loc.Path, loc.FileName, e.Bucket)
	}
	if url == "" && meta.HasGCS() {
		url = gcsPublicBase + meta.GCSFilePath + meta.GCSFileName
	}

	return models.QueryMatch{
		Score: m.Score,
		Metadata: models.MatchMetadata{
			S3FileName:     loc.FileName,
			S3FilePath:     loc.Path,
			S3PublicURL:    url,
			FileType:       meta.FileType,
			Segment:        meta.Segment,
			StartOffsetSec: meta.StartOffsetSec,
			EndOffsetSec:   meta.EndOffsetSec,
			IntervalSec:    meta.IntervalSec,
		},
	}
}

// EnrichAll keeps the index order.
func (e *Enricher) EnrichAll(matches []models.RawMatch) []models.QueryMatch {
	out := make([]models.QueryMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, e.Enrich(m))
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
