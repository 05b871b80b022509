package ingestion_engine

import (
	"sort"
	"time"

	"github.com/markdave123-py/mediasearch/internal/models"
)

// location is the s3_* pair stamped on every record of one object.
type location struct {
	FilePath string
	FileName string
}

func buildImageRecord(id string, vec []float32, loc location, now time.Time) models.IndexRecord {
	return models.IndexRecord{
		ID:     id,
		Values: vec,
		Metadata: models.Metadata{
			DateAdded:  now.UTC().Format(time.RFC3339),
			FileType:   models.FileTypeImage,
			S3FileName: loc.FileName,
			S3FilePath: loc.FilePath,
		},
	}
}

// buildSegmentRecords emits one record per video window, ordered by start offset.
// segment is start / cfg.IntervalSec and interval_sec is the window's own width,
// so the last window of a short video may be narrower than the configured interval.
func buildSegmentRecords(segs []models.VideoSegmentEmbedding, cfg models.VideoSegmentConfig, loc location, now time.Time, newID func() string) []models.IndexRecord {
	ordered := make([]models.VideoSegmentEmbedding, len(segs))
	copy(ordered, segs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartOffsetSec < ordered[j].StartOffsetSec
	})

	dateAdded := now.UTC().Format(time.RFC3339)
	out := make([]models.IndexRecord, 0, len(ordered))
	for _, s := range ordered {
		out = append(out, models.IndexRecord{
			ID:     newID(),
			Values: s.Embedding,
			Metadata: models.Metadata{
				DateAdded:      dateAdded,
				FileType:       models.FileTypeVideo,
				S3FileName:     loc.FileName,
				S3FilePath:     loc.FilePath,
				Segment:        models.IntPtr(s.StartOffsetSec / cfg.IntervalSec),
				StartOffsetSec: models.IntPtr(s.StartOffsetSec),
				EndOffsetSec:   models.IntPtr(s.EndOffsetSec),
				IntervalSec:    models.IntPtr(s.EndOffsetSec - s.StartOffsetSec),
			},
		})
	}
	return out
}
