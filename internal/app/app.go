package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/mediasearch/internal/config"
	db "github.com/markdave123-py/mediasearch/internal/core/database"
	"github.com/markdave123-py/mediasearch/internal/core/llm"
	objectclient "github.com/markdave123-py/mediasearch/internal/core/object-client"
	"github.com/markdave123-py/mediasearch/internal/services"
)

// Clients are the long-lived collaborators, built once per process and shared.
type Clients struct {
	DB       *db.DatabaseClient
	Objects  *objectclient.S3Client
	Embedder *llm.VertexEmbedder
}

func NewClients(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(initCtx, cfg)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	logger.Info("object client initialized and ready")

	embedder, err := llm.NewVertexEmbedder(initCtx, cfg, logger)
	if err != nil {
		_ = dbClient.Close()
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}
	logger.Info("embedder initialized", "model", cfg.EmbedModel, "location", cfg.ProjectLocation)

	return &Clients{DB: dbClient, Objects: objClient, Embedder: embedder}, nil
}

func (c *Clients) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

type App struct {
	Clients *Clients
	Search  *services.SearchService
	Server  *Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	clients, err := NewClients(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	search := services.NewSearchService(
		clients.Embedder,
		clients.DB,
		services.NewEnricher(cfg.BucketName),
		services.SearchConfig{
			TopK:         cfg.TopK,
			QueryTimeout: cfg.QueryTimeout,
			ScratchDir:   cfg.ScratchDir,
		},
		logger,
	)

	server := NewServer(cfg, search, clients.DB, logger)
	return &App{Clients: clients, Search: search, Server: server}, nil
}

func (a *App) Close() {
	if a.Clients != nil {
		a.Clients.Close()
	}
}
