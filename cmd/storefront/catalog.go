package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/config"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/observability"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/storage"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the product catalog",
}

var validateCmd = &cobra.Command{
	Use:   "validate [source]",
	Short: "Load a catalog and report problems",
	Long:  "Loads the catalog from a file path, http(s) URL or gs://bucket/object and prints a summary. Defaults to STORE_CATALOG_SOURCE.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	catalogCmd.AddCommand(validateCmd)
}

// catalogRuntime bundles a loaded store with the clients it owns.
type catalogRuntime struct {
	source catalog.Source
	store  *catalog.Store
	reader *storage.Reader
}

func (rt *catalogRuntime) Close() error {
	if rt.reader == nil {
		return nil
	}
	return rt.reader.Close()
}

// openCatalog parses location and prepares a store for it. A Cloud Storage
// client is created only for gs:// locations.
func openCatalog(ctx context.Context, cfg config.Config, location string, logger *zap.Logger) (*catalogRuntime, error) {
	rt := &catalogRuntime{}
	opts := catalog.SourceOptions{HTTPClient: &http.Client{Timeout: cfg.Catalog.Timeout}}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(location)), "gs://") {
		reader, err := storage.NewReader(ctx, storage.Options{
			Anonymous: cfg.Storage.Anonymous,
			Endpoint:  cfg.Storage.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		rt.reader = reader
		opts.Objects = reader
	}

	source, err := catalog.ParseSource(location, opts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	loader, err := catalog.NewLoader(source, cfg.Catalog.Timeout)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	store, err := catalog.NewStore(loader,
		catalog.WithLogger(observability.Component(logger, "catalog")),
		catalog.WithMeter(observability.Meter()),
	)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.source = source
	rt.store = store
	return rt, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		return err
	}
	location := cfg.Catalog.Source
	if len(args) == 1 {
		location = args[0]
	}

	rt, err := openCatalog(cmd.Context(), cfg, location, zap.NewNop())
	if err != nil {
		return err
	}
	defer rt.Close()

	refreshErr := rt.store.Refresh(cmd.Context())
	if refreshErr != nil && !errors.Is(refreshErr, catalog.ErrInvalidProduct) {
		return fmt.Errorf("load %s: %w", rt.source, refreshErr)
	}

	products := rt.store.Current()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d products\n", rt.source, products.Len())
	for _, p := range products.Products() {
		fmt.Fprintf(out, "  %-12s %-32s %s\n", p.ID, p.Name, p.Price)
	}
	if refreshErr != nil {
		return fmt.Errorf("%s has skipped records:\n%w", rt.source, refreshErr)
	}
	return nil
}
