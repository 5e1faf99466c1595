// Command matchctl is the operator CLI for the tutor match service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc-tutoring/match-api/internal/app"
	"github.com/tmc-tutoring/match-api/pkg/config"
	"github.com/tmc-tutoring/match-api/pkg/database"
	"github.com/tmc-tutoring/match-api/pkg/logger"
)

func main() {
	root := newRootCmd(openApp)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", exitMessage(err))
		os.Exit(1)
	}
}

// openApp connects to the configured stores and adapts the services to the CLI.
func openApp(ctx context.Context, verbose bool) (*commandLine, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	application, err := app.New(ctx, cfg, logger.NewCLI(verbose))
	if err != nil {
		return nil, nil, err
	}
	cli := &commandLine{
		generator:    application.Generator,
		matches:      application.Matches,
		exports:      application.Exports,
		admin:        application.Admin,
		participants: application.Participants,
		migrate: func(ctx context.Context) error {
			return database.Migrate(ctx, application.DB)
		},
	}
	return cli, application.Close, nil
}
