package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blockstream/internal/pipeline"
	"github.com/ajitpratap0/blockstream/pkg/adapter"
	"github.com/ajitpratap0/blockstream/pkg/block"
	"github.com/ajitpratap0/blockstream/pkg/blockio"
	"github.com/ajitpratap0/blockstream/pkg/config"
	"github.com/ajitpratap0/blockstream/pkg/logger"
	"github.com/ajitpratap0/blockstream/pkg/observability"
	"github.com/ajitpratap0/blockstream/pkg/schema"
	"github.com/ajitpratap0/blockstream/pkg/stream"
)

type adaptFlags struct {
	input            string
	output           string
	target           string
	required         string
	configFile       string
	compression      string
	inputCompression string
	format           string
	logLevel         string
	metricsAddr      string
	timeout          time.Duration
	queryID          string
	table            string
}

func newAdaptCmd() *cobra.Command {
	var f adaptFlags
	cmd := &cobra.Command{
		Use:   "adapt",
		Short: "Adapt a block stream to a target table layout",
		Long: `Read an Arrow IPC stream, adapt every block to the target descriptor and write the result.

Example:
  blockstream adapt --input events.arrows --output events.parquet --target table.yaml --compression zstd`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdapt(cmd, &f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "-", "Input Arrow IPC stream, - for stdin")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "Target table descriptor, YAML or JSON (required)")
	cmd.Flags().StringVar(&f.required, "required", "", "Insertion columns of the target table (defaults to --target)")
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to configuration YAML file (optional)")
	cmd.Flags().StringVar(&f.compression, "compression", "", "Output compression: none, zstd, lz4, s2")
	cmd.Flags().StringVar(&f.inputCompression, "input-compression", "", "Input stream framing (defaults to io.compression)")
	cmd.Flags().StringVar(&f.format, "format", "", "Output format: arrow, parquet, avro (defaults to the output extension)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Abort the run after this long")
	cmd.Flags().StringVar(&f.queryID, "query-id", "", "Insert query id attached to logs (generated when empty)")
	cmd.Flags().StringVar(&f.table, "table", "", "Target table name attached to logs (defaults to the --target file name)")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func runAdapt(cmd *cobra.Command, f *adaptFlags) error {
	cfg, err := loadConfig(f.configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.compression != "" {
		cfg.IO.Compression = f.compression
	}
	if f.format != "" {
		cfg.IO.Format = f.format
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
		OutputPaths: cfg.Logging.OutputPaths,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.With(zap.String("component", "blockstream-cli"))

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			SamplingRate:   cfg.Tracing.SampleRate,
			Output:         os.Stderr,
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	if f.metricsAddr != "" && cfg.Metrics.Enabled {
		srv := &http.Server{Addr: f.metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	outputCompression, err := blockio.ParseCompression(cfg.IO.Compression)
	if err != nil {
		return err
	}
	inputCompression := outputCompression
	if f.inputCompression != "" {
		if inputCompression, err = blockio.ParseCompression(f.inputCompression); err != nil {
			return err
		}
	}
	format := blockio.FormatFromPath(f.output)
	if cfg.IO.Format != "" {
		if format, err = blockio.ParseFormat(cfg.IO.Format); err != nil {
			return err
		}
	}

	target, err := loadSample(f.target)
	if err != nil {
		return err
	}
	defer target.Release()

	required := schema.FromArrowSchema(target.Schema())
	if f.required != "" {
		d, err := schema.LoadDescriptor(f.required)
		if err != nil {
			return err
		}
		s, err := d.ArrowSchema()
		if err != nil {
			return err
		}
		required = schema.FromArrowSchema(s)
	}

	streamOpts := []stream.Option{
		stream.WithMetrics(cfg.Metrics.Enabled),
		stream.WithTracing(cfg.Tracing.Enabled),
	}

	in, closeIn, err := openInput(cmd, f.input)
	if err != nil {
		return err
	}
	defer closeIn()

	src, err := blockio.NewIPCSource(in,
		blockio.WithCompression(inputCompression),
		blockio.WithLabel(f.input),
		blockio.WithStreamOptions(streamOpts...))
	if err != nil {
		return err
	}
	defer src.Close()

	sourceSample := block.Sample(src.Schema())
	defer sourceSample.Release()

	out, closeOut, err := openOutput(cmd, f.output)
	if err != nil {
		return err
	}
	defer closeOut()

	p := pipeline.NewInsertPipeline(&pipeline.InsertConfig{
		Source:       src,
		SourceSample: sourceSample,
		Target:       target,
		Required:     required,
		OpenSink: func(s *arrow.Schema) (blockio.Sink, error) {
			return blockio.NewSink(format, out, s, blockio.WithCompression(outputCompression))
		},
		AdapterOptions: []adapter.Option{adapter.WithStreamOptions(streamOpts...)},
	}, log)

	queryID := f.queryID
	if queryID == "" {
		queryID = uuid.NewString()
	}
	table := f.table
	if table == "" {
		table = strings.TrimSuffix(filepath.Base(f.target), filepath.Ext(f.target))
	}
	ctx := logger.WithQuery(context.Background(), queryID, table)
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	// first signal stops after the block in flight
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sig:
			log.Warn("received shutdown signal")
			p.Stop()
		case <-done:
		}
	}()

	log.Info("adapting block stream",
		zap.String("query_id", queryID),
		zap.String("table", table),
		zap.String("input", f.input),
		zap.String("output", f.output),
		zap.String("target", f.target),
		zap.String("format", string(format)),
		zap.String("compression", string(outputCompression)))

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("adapt failed: %w", err)
	}

	enc := json.NewEncoder(cmd.ErrOrStderr())
	enc.SetIndent("", "  ")
	return enc.Encode(p.Stats())
}

func loadSample(path string) (arrow.Record, error) {
	d, err := schema.LoadDescriptor(path)
	if err != nil {
		return nil, err
	}
	return block.SampleFromDescriptor(d)
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input %s: %w", path, err)
	}
	return fh, func() { _ = fh.Close() }, nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output %s: %w", path, err)
	}
	return fh, func() { _ = fh.Close() }, nil
}
