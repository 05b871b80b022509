package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/markdave123-py/mediasearch/internal/services"
)

func BackfillAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	bucket := cmd.String("bucket")
	if bucket == "" {
		bucket = appCtx.Config.BucketName
	}
	if bucket == "" {
		return fmt.Errorf("--bucket is required when S3_BUCKET_NAME is not set")
	}

	svc := services.NewBackfillService(appCtx.Clients.DB, bucket, cmd.Int("page-size"), cmd.Bool("dry-run"), appCtx.Logger)
	res, runErr := svc.Run(ctx)
	if err := printJSON(cmd.Root().Writer, res); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("backfill: %w", runErr)
	}
	return nil
}
