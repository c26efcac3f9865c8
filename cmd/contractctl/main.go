package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/app"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/export"
	"github.com/joseph-ayodele/contracts-analyzer/internal/ingest"
	"github.com/joseph-ayodele/contracts-analyzer/internal/jurisdiction"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "contractctl",
		Short:         "Analyze legal contracts from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config (defaults to $CONFIG_FILE)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(newAnalyzeCmd(opts), newExtractCmd(opts), newJurisdictionCmd(opts), newBatchCmd(opts))
	return root
}

// load reads the config and installs a stderr logger so stdout stays JSON.
func (o *options) load(cmd *cobra.Command) (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logger := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run the full pipeline and print the report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			in, err := readDocument(args[0])
			if err != nil {
				return err
			}
			p, err := app.NewPipeline(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			report, err := p.Processor.Run(cmd.Context(), in)
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				b, err := export.NewWriter(logger).ReportXLSX(report)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxPath, b, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", xlsxPath, err)
				}
				logger.Info("workbook written", "path", xlsxPath, "bytes", len(b))
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the findings workbook to this path")
	return cmd
}

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract text only and print it with per-page provenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidatePipeline(); err != nil {
				return err
			}
			in, err := readDocument(args[0])
			if err != nil {
				return err
			}
			p, err := app.NewPipeline(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			extracted, err := p.Processor.Extract(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), extracted)
		},
	}
}

func newJurisdictionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "jurisdiction <textfile|->",
		Short: "Detect the governing jurisdiction of a plain-text contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			var text []byte
			if args[0] == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read text: %w", err)
			}
			label := jurisdiction.NewDetector(cfg.Jurisdiction, logger).Detect(string(text))
			return printJSON(cmd.OutOrStdout(), label)
		},
	}
}

type batchSummary struct {
	Dir       string          `json:"dir"`
	Scan      ingest.DirStats `json:"scan"`
	Processed int             `json:"processed"`
	Skipped   int             `json:"deduplicated"`
	Failed    int             `json:"failed"`
	Results   []ingest.Result `json:"results"`
}

func newBatchCmd(opts *options) *cobra.Command {
	var (
		inmem  bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Analyze every contract under a directory into the report store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if inmem {
				cfg.Database = common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			files, stats, err := ingest.Discover(args[0], true)
			if err != nil {
				return err
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", outDir, err)
				}
			}

			ctx := cmd.Context()
			svc, err := app.NewService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			summary := batchSummary{Dir: args[0], Scan: stats, Results: make([]ingest.Result, 0, len(files))}
			for _, path := range files {
				if ctx.Err() != nil {
					break
				}
				res, err := svc.Reports.ProcessFile(ctx, path)
				switch {
				case err != nil:
					res.Err = err.Error()
					summary.Failed++
					logger.Error("failed to process file", "path", path, "error", err)
				case res.Deduplicated:
					summary.Skipped++
				default:
					summary.Processed++
				}
				if err == nil && outDir != "" {
					b, name, err := svc.Reports.ExportXLSX(ctx, res.ReportID)
					if err != nil {
						return err
					}
					if err := os.WriteFile(filepath.Join(outDir, name), b, 0o644); err != nil {
						return fmt.Errorf("write workbook: %w", err)
					}
				}
				summary.Results = append(summary.Results, res)
			}
			logger.Info("batch processing complete",
				"files", len(files),
				"processed", summary.Processed,
				"deduplicated", summary.Skipped,
				"failures", summary.Failed,
			)
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().BoolVar(&inmem, "inmem", false, "use an in-memory SQLite store")
	cmd.Flags().StringVar(&outDir, "xlsx-dir", "", "write one findings workbook per report into this directory")
	return cmd
}

func readDocument(path string) (entity.DocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.DocumentInput{}, fmt.Errorf("read %s: %w", path, err)
	}
	return entity.DocumentInput{
		Name:   filepath.Base(path),
		Data:   data,
		Format: constants.MapExtToFormat(filepath.Ext(path)),
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
