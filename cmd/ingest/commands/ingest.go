package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/markdave123-py/mediasearch/internal/config"
	"github.com/markdave123-py/mediasearch/internal/core/ingestion_engine"
	"github.com/markdave123-py/mediasearch/internal/core/retry"
	"github.com/markdave123-py/mediasearch/internal/models"
)

func ImagesAction(ctx context.Context, cmd *cli.Command) error {
	return runIngest(ctx, cmd, ingestion_engine.KindImage)
}

func VideosAction(ctx context.Context, cmd *cli.Command) error {
	return runIngest(ctx, cmd, ingestion_engine.KindVideo)
}

func runIngest(ctx context.Context, cmd *cli.Command, kind ingestion_engine.MediaKind) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	job, ingestCfg, err := jobFromFlags(cmd, kind, appCtx.Config)
	if err != nil {
		return err
	}
	ingestCfg.Download = retry.DownloadPolicy(appCtx.Logger)
	ingestCfg.Embed = retry.EmbedPolicy(appCtx.Logger)

	ingestor := ingestion_engine.NewMediaIngestor(
		appCtx.Clients.Objects,
		appCtx.Clients.Embedder,
		appCtx.Clients.DB,
		ingestCfg,
		appCtx.Logger,
	)

	summary, runErr := ingestor.Run(ctx, job)
	if err := printJSON(cmd.Root().Writer, summary); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("%s ingestion: %w", kind, runErr)
	}
	if summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d objects failed", summary.Failed, summary.Total), 1)
	}
	return nil
}

// jobFromFlags merges command flags over config defaults.
func jobFromFlags(cmd *cli.Command, kind ingestion_engine.MediaKind, cfg *config.Config) (ingestion_engine.Job, ingestion_engine.IngestConfig, error) {
	job := ingestion_engine.Job{
		Kind:   kind,
		Bucket: cmd.String("bucket"),
		Prefix: cmd.String("folder"),
	}
	if job.Bucket == "" {
		job.Bucket = cfg.BucketName
	}
	if job.Bucket == "" {
		return job, ingestion_engine.IngestConfig{}, fmt.Errorf("--bucket is required when S3_BUCKET_NAME is not set")
	}

	ic := ingestion_engine.DefaultIngestConfig()
	ic.Workers = cfg.IngestWorkers
	if w := cmd.Int("workers"); w > 0 {
		ic.Workers = w
	}

	if kind == ingestion_engine.KindVideo {
		ic.Segment = models.VideoSegmentConfig{
			StartOffsetSec: cmd.Int("start"),
			EndOffsetSec:   cmd.Int("end"),
			IntervalSec:    cmd.Int("interval"),
		}
		if err := ic.Segment.Validate(); err != nil {
			return job, ic, err
		}
	}
	return job, ic, nil
}
