package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/markdave123-py/mediasearch/internal/models"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "env file to load (overrides DOTENV_PATH and .env.<APP_ENV>)",
	}
}

func bucketFlags() []cli.Flag {
	return []cli.Flag{
		envFlag(),
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "source bucket (defaults to S3_BUCKET_NAME)",
		},
		&cli.StringFlag{
			Name:  "folder",
			Usage: "folder inside the bucket; empty ingests the whole bucket",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "objects processed concurrently (defaults to INGEST_WORKERS)",
		},
	}
}

func videoFlags() []cli.Flag {
	seg := models.DefaultVideoSegmentConfig()
	return append(bucketFlags(),
		&cli.IntFlag{
			Name:  "interval",
			Usage: "segment length in seconds",
			Value: seg.IntervalSec,
		},
		&cli.IntFlag{
			Name:  "start",
			Usage: "first second of the video to embed",
			Value: seg.StartOffsetSec,
		},
		&cli.IntFlag{
			Name:  "end",
			Usage: "last second of the video to embed",
			Value: seg.EndOffsetSec,
		},
	)
}

// Root builds the ingest command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "batch jobs for the media search index",
		Commands: []*cli.Command{
			{
				Name:   "images",
				Usage:  "embed every image under a bucket folder and upsert it",
				Flags:  bucketFlags(),
				Action: ImagesAction,
			},
			{
				Name:   "videos",
				Usage:  "embed every video under a bucket folder, one record per segment",
				Flags:  videoFlags(),
				Action: VideosAction,
			},
			{
				Name:  "backfill",
				Usage: "rewrite records that still carry gcs_* locations into the s3_* scheme",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:  "bucket",
						Usage: "bucket the copied objects live in (defaults to S3_BUCKET_NAME)",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "ids fetched per page",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "report what would change without writing",
					},
				},
				Action: BackfillAction,
			},
			{
				Name:   "check-env",
				Usage:  "print the project id and the env file that was loaded",
				Flags:  []cli.Flag{envFlag()},
				Action: CheckEnvAction,
			},
		},
	}
}
