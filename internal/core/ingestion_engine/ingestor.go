package ingestion_engine

import "context"

type Ingestor interface {
	Run(ctx context.Context, job Job) (Summary, error)
}
