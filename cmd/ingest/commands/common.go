package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/markdave123-py/mediasearch/internal/app"
	"github.com/markdave123-py/mediasearch/internal/config"
	"github.com/markdave123-py/mediasearch/internal/logger"
)

// AppContext holds what every batch command needs.
type AppContext struct {
	Config  *config.Config
	Clients *app.Clients
	Logger  *slog.Logger
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if envFile := cmd.String("env"); envFile != "" {
		if err := os.Setenv("DOTENV_PATH", envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// NewAppContext loads config and connects the database, object store and embedder.
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	lg := logger.New(cfg)

	clients, err := app.NewClients(ctx, cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("init clients: %w", err)
	}
	return &AppContext{Config: cfg, Clients: clients, Logger: lg}, nil
}

func (ac *AppContext) Close() {
	if ac.Clients != nil {
		ac.Clients.Close()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
