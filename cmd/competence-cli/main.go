package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/competence/internal/adapters/source"
	"github.com/okian/competence/internal/config"
	"github.com/okian/competence/internal/docgen"
	"github.com/okian/competence/internal/domain/aggregate"
	"github.com/okian/competence/internal/domain/chart"
	"github.com/okian/competence/internal/domain/model"
	"github.com/okian/competence/internal/report"
	"github.com/okian/competence/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type fetchFlags struct {
	timeout time.Duration
	retries int
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "competence-cli",
		Short:         "Summarise competence documents by category",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(errOut)); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newAggregateCmd(), newChartCmd(), newGenerateCmd())
	return root
}

func (f *fetchFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", cfg.FetchTimeout(), "per-attempt fetch timeout")
	cmd.Flags().IntVar(&f.retries, "retries", cfg.FetchMaxRetries, "retries for transient fetch failures")
}

// load fetches and aggregates the document named by args, or the configured
// source when args is empty.
func (f *fetchFlags) load(ctx context.Context, cfg *config.Config, args []string) (*aggregate.Result, error) {
	url := cfg.SourceURL
	if len(args) > 0 {
		url = args[0]
	}

	fetcher := source.NewFetcher(
		source.WithTimeout(f.timeout),
		source.WithMaxRetries(f.retries),
		source.WithLogger(logger.Named("source")),
	)
	categories, err := fetcher.FetchCategories(ctx, url)
	if err != nil {
		return nil, err
	}
	return aggregate.Aggregate(categories)
}

// defaults loads the service configuration so flags share its defaults.
// Errors fall back to built-in defaults.
func defaults() *config.Config {
	cfg, err := config.Load(context.Background())
	if err != nil {
		return config.New()
	}
	return cfg
}

func newAggregateCmd() *cobra.Command {
	cfg := defaults()
	var (
		fetch   fetchFlags
		format  string
		lang    string
		details bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate [source]",
		Short: "Print per-category totals of a competence document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			res, err := fetch.load(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			return report.New(f, report.WithLanguage(lang), report.WithDetails(details)).
				Render(cmd.OutOrStdout(), res)
		},
	}
	fetch.register(cmd, cfg)
	cmd.Flags().StringVar(&format, "format", string(report.FormatTable), "output format: table, json or yaml")
	cmd.Flags().StringVar(&lang, "lang", "en", "locale for numbers in tables, e.g. de")
	cmd.Flags().BoolVar(&details, "details", false, "list competencies under each category")
	return cmd
}

func newChartCmd() *cobra.Command {
	cfg := defaults()
	var (
		fetch fetchFlags
		title string
	)

	cmd := &cobra.Command{
		Use:   "chart [source]",
		Short: "Print the chart payload of a competence document as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := fetch.load(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			c := chart.Build(res, chart.WithTitle(title), chart.WithPalette(cfg.Palette))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}
	fetch.register(cmd, cfg)
	cmd.Flags().StringVar(&title, "title", cfg.ChartTitle, "chart title")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		gen    docgen.Config
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic competence document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := docgen.Generate(cmd.Context(), gen)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				err = docgen.Write(cmd.OutOrStdout(), categories)
			} else {
				err = writeFile(output, categories)
			}
			if err != nil {
				return err
			}
			logger.Get().Info(cmd.Context(), "document generated",
				logger.Int("records", len(categories)),
				logger.String("output", output),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&gen.Categories, "categories", 5, "number of distinct categories")
	cmd.Flags().IntVar(&gen.Competencies, "competencies", 4, "competencies per category")
	cmd.Flags().IntVar(&gen.Duplicates, "duplicates", 0, "extra records repeating earlier category names")
	cmd.Flags().Uint64Var(&gen.Seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

func writeFile(path string, categories []model.Category) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return writeAndClose(file, categories)
}

// writeAndClose writes the document and closes w, returning the first error.
func writeAndClose(w io.WriteCloser, categories []model.Category) error {
	if err := docgen.Write(w, categories); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
