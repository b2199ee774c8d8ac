package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/naka-gawa/pr-tracker/internal/config"
	"github.com/naka-gawa/pr-tracker/internal/gateway"
	"github.com/naka-gawa/pr-tracker/internal/logging"
	"github.com/naka-gawa/pr-tracker/internal/usecase"
	"github.com/spf13/cobra"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	gateway *gateway.GitHubGateway
	service *usecase.PullRequestService
}

// newApp loads the configuration and wires the gateway and service.
// Without --verbose, terminal commands discard their logs and serve logs at info.
func newApp(cmd *cobra.Command, alwaysLog bool) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	var out io.Writer = io.Discard
	if verbose || alwaysLog {
		out = os.Stderr
	}
	log := logging.New(cfg.Env, verbose, out)

	gw, err := gateway.NewGitHubGateway(gateway.Options{
		Token:               cfg.GitHub.Token,
		BaseURL:             cfg.GitHub.BaseURL,
		GraphQLURL:          cfg.GitHub.GraphQLURL,
		Timeout:             cfg.GitHub.Timeout,
		SecondaryLimitSleep: cfg.GitHub.SecondaryLimitSleep,
		MaxAttempts:         cfg.GitHub.MaxAttempts,
		BaseDelay:           cfg.GitHub.BaseDelay,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}

	habit := usecase.NewHabitAggregator(nil, log)
	return &app{
		cfg:     cfg,
		log:     log,
		gateway: gw,
		service: usecase.NewPullRequestService(gw, habit, log),
	}, nil
}
