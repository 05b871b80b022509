package commands

import (
	"context"

	"github.com/urfave/cli/v3"
)

type envReport struct {
	ProjectID string `json:"project_id"`
	EnvFile   string `json:"env_file"`
}

// CheckEnvAction only loads config; it never dials anything.
func CheckEnvAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, envReport{ProjectID: cfg.ProjectID, EnvFile: cfg.EnvFile})
}
