// Command cli loads runs for one configured store and prints the resulting
// snapshot as JSON. It is handy for checking an upstream and a filter set
// without starting the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nomis52/runboard/buildinfo"
	"github.com/nomis52/runboard/fetch"
	"github.com/nomis52/runboard/logging"
	"github.com/nomis52/runboard/metrics"
	"github.com/nomis52/runboard/runs"
	"github.com/nomis52/runboard/server/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "runboard-cli",
		Short:        "Load runs from a configured upstream and print them as JSON",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to server config file")

	cmd.AddCommand(loadCmd(&configPath), validateCmd(&configPath), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "runboard cli %s\n", buildinfo.Get())
			return nil
		},
	}
}

func validateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(*configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration validation successful: %s\n", *configPath)
			return nil
		},
	}
}

func loadCmd(configPath *string) *cobra.Command {
	var (
		store   string
		pages   int
		filters []string
	)

	c := &cobra.Command{
		Use:   "load",
		Short: "Fetch pages for a store and print its snapshot",
		Example: "  runboard-cli load -c server.yaml --store mine --pages 3\n" +
			"  runboard-cli load -c server.yaml --filter verdict=AC --filter language=cpp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			parsed, err := parseFilters(filters)
			if err != nil {
				return err
			}
			return runLoad(cmd.Context(), cfg, store, pages, parsed, cmd.OutOrStdout())
		},
	}

	c.Flags().StringVar(&store, "store", "", "Store to load, defaults to the first configured")
	c.Flags().IntVar(&pages, "pages", 1, "Number of pages to load")
	c.Flags().StringArrayVar(&filters, "filter", nil, "Filter as key=value, may be repeated")
	return c
}

func loadConfig(path string) (*config.ServerConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("config flag (-c or --config) is required")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runLoad(ctx context.Context, cfg *config.ServerConfig, name string, pages int, filters runs.Filters, out io.Writer) error {
	// Logs go to stderr so out carries only the snapshot.
	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	storeCfg, err := findStore(cfg, name)
	if err != nil {
		return err
	}

	storeOpts := []runs.Option{runs.WithLogger(logger.Logger)}
	if storeCfg.EmptyFilters {
		storeOpts = append(storeOpts, runs.WithEmptyFilters())
	}
	store := runs.New(storeCfg.Name, storeOpts...)

	if len(filters) > 0 {
		if err := store.ApplyFilter(filters); err != nil {
			return err
		}
	}

	// Push a one-off set of metrics when configured, like a cron job would.
	var registry *metrics.PushRegistry
	if cfg.Metrics.PushURL != "" {
		instance := cfg.Metrics.Instance
		if instance == "" {
			hostname, err := os.Hostname()
			if err != nil {
				return fmt.Errorf("failed to get hostname: %w", err)
			}
			instance = hostname
		}
		registry = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Metrics.PushURL,
			Prefix:   cfg.Metrics.Prefix,
			Job:      cfg.Metrics.Job,
			Instance: instance,
		}, logger.Logger)
		exporter, err := metrics.NewStoreExporter(registry)
		if err != nil {
			return err
		}
		defer exporter.Watch(store)()
	}

	fetcher := fetch.New(store, storeCfg.Upstream,
		fetch.WithPageSize(storeCfg.PageSize),
		fetch.WithTimeout(storeCfg.Timeout),
		fetch.WithLogger(logger.Logger),
	)

	for i := 0; i < pages && !store.EndOfResults(); i++ {
		if err := fetcher.LoadMore(ctx); err != nil {
			return fmt.Errorf("failed to load page %d: %w", i+1, err)
		}
	}

	if registry != nil {
		if err := registry.Push(ctx); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(store.Snapshot())
}

func findStore(cfg *config.ServerConfig, name string) (config.StoreConfig, error) {
	if name == "" {
		return cfg.Stores[0], nil
	}
	for _, s := range cfg.Stores {
		if s.Name == name {
			return s, nil
		}
	}
	return config.StoreConfig{}, fmt.Errorf("store %q is not configured", name)
}

func parseFilters(pairs []string) (runs.Filters, error) {
	filters := make(runs.Filters, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q must be key=value", pair)
		}
		key, err := runs.ParseFilterKey(k)
		if err != nil {
			return nil, err
		}
		filters[key] = v
	}
	return filters, nil
}
