package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessera-db/tessera/internal/pipeline"
	"github.com/tessera-db/tessera/pkg/batchio"
	"github.com/tessera-db/tessera/pkg/config"
	"github.com/tessera-db/tessera/pkg/logger"
	"github.com/tessera-db/tessera/pkg/observability"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "tessera",
		Short: "Tessera - columnar batch rechunking for query pipelines",
		Long: `Tessera restores batch granularity in columnar streams. Query stages
that filter or join aggressively emit many undersized batches; tessera
accumulates them up to row/byte thresholds before handing them on,
keeping per-batch overhead amortized over useful work.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tessera v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var configFile, inputFile, outputFile, mode, logLevel string
	var minRows, minBytes uint64
	var memoryLimit int64

	rechunkCmd := &cobra.Command{
		Use:   "rechunk",
		Short: "Rechunk a JSONL stream into threshold-sized batches",
		Long: `Read JSON lines from the input, accumulate them into columnar batches
until the row or byte threshold is met, and write the rebalanced
batches back out as JSON lines.

Example:
  tessera rechunk --input rows.jsonl --output out.jsonl --min-rows 65536`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, mode, minRows, minBytes, memoryLimit, logLevel)
			return runRechunk(cfg, inputFile, outputFile)
		},
	}

	rechunkCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file (optional)")
	rechunkCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input JSONL file (default stdin)")
	rechunkCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output JSONL file (default stdout)")
	rechunkCmd.Flags().Uint64Var(&minRows, "min-rows", 65536, "Minimum rows per emitted batch (0 disables the row threshold)")
	rechunkCmd.Flags().Uint64Var(&minBytes, "min-bytes", 16<<20, "Minimum bytes per emitted batch (0 disables the byte threshold)")
	rechunkCmd.Flags().StringVar(&mode, "mode", config.ModeDeferred, "Squash mode: eager or deferred")
	rechunkCmd.Flags().Int64Var(&memoryLimit, "memory-limit", 0, "Hard memory ceiling in bytes for deferred mode (0 = unbounded)")
	rechunkCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(rechunkCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the YAML config when a path is given, otherwise
// starts from defaults. Flags are layered on top afterwards.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.New("tessera"), nil
	}
	return config.LoadFile(path)
}

// applyFlags overrides config fields with flags the user explicitly set.
func applyFlags(cmd *cobra.Command, cfg *config.Config, mode string, minRows, minBytes uint64, memoryLimit int64, logLevel string) {
	if cmd.Flags().Changed("min-rows") {
		cfg.Squash.MinRows = minRows
	}
	if cmd.Flags().Changed("min-bytes") {
		cfg.Squash.MinBytes = minBytes
	}
	if cmd.Flags().Changed("mode") {
		cfg.Squash.Mode = mode
	}
	if cmd.Flags().Changed("memory-limit") {
		cfg.Memory.LimitBytes = memoryLimit
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

func runRechunk(cfg *config.Config, inputFile, outputFile string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.EnableTracing {
		if err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: version,
			SamplingRate:   cfg.Observability.SamplingRate,
		}); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() { _ = observability.Shutdown(context.Background()) }()
	}

	in := os.Stdin
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("failed to open input %s: %w", inputFile, err)
		}
		defer f.Close()
		in = f
	}

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output %s: %w", outputFile, err)
		}
		defer f.Close()
		out = f
	}

	log.Info("starting rechunk",
		zap.String("mode", cfg.Squash.Mode),
		zap.Uint64("min_rows", cfg.Squash.MinRows),
		zap.Uint64("min_bytes", cfg.Squash.MinBytes),
		zap.Int64("memory_limit", cfg.Memory.LimitBytes))

	source := batchio.NewReader(in, cfg.Pipeline.ReadBatchRows)
	sink := batchio.NewWriter(out)

	p := pipeline.New(cfg, source, sink, log)
	if err := p.Run(ctx); err != nil {
		log.Error("rechunk failed", zap.Error(err))
		return err
	}
	return nil
}
