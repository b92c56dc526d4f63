package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"warehouse/internal/api"
	"warehouse/internal/command"
	"warehouse/internal/inventory"
	"warehouse/internal/logging"
	"warehouse/internal/metrics"
	"warehouse/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	configPath = flag.String("config", "configs/warehouse.yaml", "Path to configuration file")
	inputPath  = flag.String("input", "", "Operation stream to replay (default stdin)")
	outputPath = flag.String("output", "", "Where to write the final dump (default stdout)")
	placement  = flag.String("placement", "", "Placement policy for add records (home, best)")
	httpAddr   = flag.String("http", "", "Serve the inspection API on this address after replay")
)

// options are the command line overrides applied on top of the config file.
type options struct {
	placement string
	httpAddr  string
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	runID := logging.NewCorrelationID()
	logger, err := logging.InitializeFromConfig(runID, logging.LogConfig{
		Level:         cfg.Logging.Level,
		EnableConsole: cfg.Logging.EnableConsole,
		EnableFile:    cfg.Logging.EnableFile,
		LogFile:       cfg.Logging.LogFile,
		BufferSize:    cfg.Logging.BufferSize,
		LogDir:        cfg.Logging.LogDir,
	}, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to open input: %v\n", err)
			logger.Close()
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	out := io.Writer(os.Stdout)
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to create output: %v\n", err)
			logger.Close()
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(logging.WithCorrelationID(context.Background(), runID), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, options{placement: *placement, httpAddr: *httpAddr}, in, out)
	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// run replays in against a fresh warehouse, writes the dump to out and, when an
// inspection address is configured, serves the API until ctx is done.
func run(ctx context.Context, cfg *config.Config, opts options, in io.Reader, out io.Writer) error {
	if opts.placement != "" {
		cfg.Warehouse.Placement = opts.placement
	}
	if opts.httpAddr != "" {
		cfg.HTTP.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Info(ctx, logging.ComponentMain, logging.ActionStart, "Warehouse run starting", logging.Fields{
		"sectors":         cfg.Warehouse.Sectors,
		"sector_capacity": cfg.Warehouse.SectorCapacity,
		"popularity":      cfg.Warehouse.Popularity,
		"placement":       cfg.Warehouse.Placement,
	})

	w, err := inventory.New(inventory.Config{
		Sectors:        cfg.Warehouse.Sectors,
		SectorCapacity: cfg.Warehouse.SectorCapacity,
		Popularity:     cfg.Warehouse.Popularity,
	})
	if err != nil {
		return fmt.Errorf("failed to create warehouse: %w", err)
	}
	w.OnEvict(func(sector int, evicted inventory.Product) {
		logging.Debug(ctx, logging.ComponentWarehouse, logging.ActionEvict, "Evicted least popular product", logging.Fields{
			"sector":     sector,
			"product_id": evicted.ID,
			"name":       evicted.Name,
		})
	})

	replayer := command.NewReplayer(w, cfg.Warehouse.Placement == config.PlacementBest)
	summary, err := replayer.Replay(ctx, in)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(out, w.Dump()); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}

	stats := w.Stats()
	logging.Info(ctx, logging.ComponentWarehouse, logging.ActionDump, "Final warehouse state written", logging.Fields{
		"digest":             fmt.Sprintf("%016x", w.Digest()),
		"products":           w.Len(),
		"applied":            summary.Applied,
		"skipped":            summary.Skipped,
		"evictions":          stats.Evictions,
		"displaced":          stats.Displaced,
		"rejected_purchases": stats.RejectedPurchases,
		"misses":             stats.Misses,
		"duration_ms":        summary.Duration.Milliseconds(),
	})
	if err := w.Verify(); err != nil {
		logging.Warn(ctx, logging.ComponentWarehouse, logging.ActionValidation, "Warehouse invariants violated", logging.Fields{
			"error": err.Error(),
		})
	}

	if !cfg.HTTP.Enabled {
		return nil
	}

	addr := cfg.HTTP.Address()
	if opts.httpAddr != "" {
		addr = opts.httpAddr
	}
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.NewRegistry(cfg.Metrics.Namespace, w)
	}
	return api.New(addr, w, registry).Run(ctx)
}
