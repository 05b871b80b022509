package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/mediasearch/internal/core"
	"github.com/markdave123-py/mediasearch/internal/models"
)

const defaultBackfillPage = 100

// BackfillService rewrites records that only carry legacy gcs_* location fields
// into the s3_* scheme.
type BackfillService struct {
	index    core.VectorIndex
	bucket   string
	pageSize int
	dryRun   bool
	logger   *slog.Logger
}

type BackfillResult struct {
	Scanned  int `json:"scanned"`
	Migrated int `json:"migrated"`
	Already  int `json:"already_migrated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func NewBackfillService(index core.VectorIndex, bucket string, pageSize int, dryRun bool, logger *slog.Logger) *BackfillService {
	if pageSize <= 0 {
		pageSize = defaultBackfillPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BackfillService{index: index, bucket: bucket, pageSize: pageSize, dryRun: dryRun, logger: logger}
}

// Run pages through every id. A failed page is logged and the run moves on;
// only a listing failure aborts.
func (s *BackfillService) Run(ctx context.Context) (BackfillResult, error) {
	var res BackfillResult
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ids, err := s.index.ListIDs(ctx, after, s.pageSize)
		if err != nil {
			return res, fmt.Errorf("list ids after %q: %w", after, err)
		}
		if len(ids) == 0 {
			break
		}
		after = ids[len(ids)-1]

		records, err := s.index.Fetch(ctx, ids)
		if err != nil {
			s.logger.Error("fetch batch failed", "first_id", ids[0], "size", len(ids), "error", err)
			res.Failed += len(ids)
			continue
		}

		var upserts []models.IndexRecord
		for _, rec := range records {
			res.Scanned++
			switch {
			case rec.Metadata.HasS3():
				res.Already++
			case rec.Metadata.GCSFileName == "" || rec.Metadata.GCSFilePath == "":
				s.logger.Warn("record missing gcs metadata, skipping", "id", rec.ID)
				res.Skipped++
			default:
				rec.Metadata = MigrateMetadata(rec.Metadata, s.bucket)
				upserts = append(upserts, rec)
			}
		}
		if len(upserts) == 0 {
			continue
		}

		if s.dryRun {
			s.logger.Info("dry run, not upserting", "count", len(upserts), "first_id", upserts[0].ID)
			res.Migrated += len(upserts)
			continue
		}
		if err := s.index.Upsert(ctx, upserts); err != nil {
			s.logger.Error("upsert batch failed", "first_id", upserts[0].ID, "size", len(upserts), "error", err)
			res.Failed += len(upserts)
			continue
		}
		res.Migrated += len(upserts)
		s.logger.Info("upserted migrated records", "count", len(upserts))
	}

	s.logger.Info("backfill complete",
		"scanned", res.Scanned,
		"migrated", res.Migrated,
		"already_migrated", res.Already,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

// MigrateMetadata moves the gcs_* pair into s3_*, dropping a leading "{bucket}/"
// from the path, and clears the legacy fields.
func MigrateMetadata(meta models.Metadata, bucket string) models.Metadata {
	path := meta.GCSFilePath
	if bucket != "" {
		path = strings.TrimPrefix(path, bucket+"/")
	}
	meta.S3FileName = meta.GCSFileName
	meta.S3FilePath = path
	meta.GCSFileName = ""
	meta.GCSFilePath = ""
	return meta
}
