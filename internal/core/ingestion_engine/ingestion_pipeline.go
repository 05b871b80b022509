package ingestion_engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/mediasearch/internal/core"
	"github.com/markdave123-py/mediasearch/internal/core/retry"
	"github.com/markdave123-py/mediasearch/internal/models"
)

// MediaIngestor walks a bucket prefix and writes one record per image, or one
// record per window for videos, into the vector index.
type MediaIngestor struct {
	obj      core.ObjectClient
	embedder core.EmbeddingProvider
	index    core.VectorIndex
	cfg      IngestConfig
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

var _ Ingestor = (*MediaIngestor)(nil)

func NewMediaIngestor(obj core.ObjectClient, emb core.EmbeddingProvider, index core.VectorIndex, cfg IngestConfig, logger *slog.Logger) *MediaIngestor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ObjectTimeout <= 0 {
		cfg.ObjectTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Download.Logger == nil {
		cfg.Download.Logger = logger
	}
	if cfg.Embed.Logger == nil {
		cfg.Embed.Logger = logger
	}
	return &MediaIngestor{
		obj: obj, embedder: emb, index: index, cfg: cfg, logger: logger,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Run lists the job's prefix and processes every matching object on a bounded pool.
// A failing object is logged and counted; it never stops its siblings. Run returns
// once every object has finished.
func (i *MediaIngestor) Run(ctx context.Context, job Job) (Summary, error) {
	var sum Summary
	if err := job.validate(); err != nil {
		return sum, err
	}
	if job.Kind == KindVideo {
		if err := i.cfg.Segment.Validate(); err != nil {
			return sum, err
		}
	}

	objects, err := i.obj.ListObjects(ctx, job.Bucket, job.listPrefix())
	if err != nil {
		return sum, fmt.Errorf("list %s/%s: %w", job.Bucket, job.listPrefix(), err)
	}

	var keys []string
	for _, o := range objects {
		if MatchesKind(o.Key, job.Kind) {
			keys = append(keys, o.Key)
		}
	}
	sum.Total = len(keys)
	i.logger.Info("ingestion started",
		"kind", job.Kind,
		"bucket", job.Bucket,
		"prefix", job.folder(),
		"objects", sum.Total,
		"workers", i.cfg.Workers,
	)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(i.cfg.Workers)

	for n, key := range keys {
		g.Go(func() error {
			records, err := i.processOne(ctx, job, key)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				sum.FailedKeys = append(sum.FailedKeys, key)
				i.logger.Error("object failed", "key", key, "progress", fmt.Sprintf("%d/%d", n+1, sum.Total), "error", err)
				return nil
			}
			sum.Succeeded++
			sum.Records += records
			i.logger.Info("object ingested", "key", key, "records", records, "progress", fmt.Sprintf("%d/%d", n+1, sum.Total))
			return nil
		})
	}
	_ = g.Wait()

	i.logger.Info("ingestion finished",
		"kind", job.Kind,
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"records", sum.Records,
	)
	return sum, ctx.Err()
}

// processOne runs download, embed and upsert for one object as a single retried unit.
func (i *MediaIngestor) processOne(ctx context.Context, job Job, key string) (int, error) {
	loc := location{FilePath: job.filePath(), FileName: job.fileName(key)}

	embedPolicy := i.cfg.Embed
	embedPolicy.Name = "ingest " + key

	return retry.Do(ctx, embedPolicy, func(ctx context.Context) (int, error) {
		ctxObj, cancel := context.WithTimeout(ctx, i.cfg.ObjectTimeout)
		defer cancel()

		dlPolicy := i.cfg.Download
		dlPolicy.Name = "download " + key
		data, err := retry.Do(ctxObj, dlPolicy, func(ctx context.Context) ([]byte, error) {
			return i.obj.GetFile(ctx, job.Bucket, key)
		})
		if err != nil {
			return 0, err
		}
		encoded := base64.StdEncoding.EncodeToString(data)

		var records []models.IndexRecord
		switch job.Kind {
		case KindImage:
			vec, err := i.embedder.EmbedImage(ctxObj, encoded)
			if err != nil {
				return 0, fmt.Errorf("embed image: %w", err)
			}
			records = []models.IndexRecord{buildImageRecord(i.newID(), vec, loc, i.now())}
		case KindVideo:
			segCfg := i.cfg.Segment
			segs, err := i.embedder.EmbedVideo(ctxObj, encoded, &segCfg)
			if err != nil {
				return 0, fmt.Errorf("embed video: %w", err)
			}
			records = buildSegmentRecords(segs, segCfg, loc, i.now(), i.newID)
		}

		if len(records) == 0 {
			return 0, nil
		}
		if err := i.index.Upsert(ctxObj, records); err != nil {
			return 0, fmt.Errorf("upsert: %w", err)
		}
		return len(records), nil
	})
}
