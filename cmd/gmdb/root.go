package main

import (
	"context"
	"fmt"
	"io"

	"gmdb/internal/constants"
	fxmodules "gmdb/internal/fx"
	"gmdb/internal/service"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var rootCmd = &cobra.Command{
	Use:          "gmdb",
	Short:        "Game Manager Database viewer",
	Long:         `Browse, search and track the community Game Manager account dataset.`,
	SilenceUsage: true,
}

// services is what the one-shot commands need from the fx graph.
type services struct {
	Dataset *service.DatasetService
	Search  *service.SearchService
	Profile *service.ProfileService
}

// withServices builds the application graph without the HTTP server, runs
// fn and tears the graph down again.
func withServices(ctx context.Context, fn func(ctx context.Context, svc services) error) error {
	var svc services
	app := fx.New(
		fxmodules.Module,
		fx.NopLogger,
		fx.Populate(&svc.Dataset, &svc.Search, &svc.Profile),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx, svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
