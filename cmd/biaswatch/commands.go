package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"biaswatch/internal/app"
	"biaswatch/internal/domain/entity"
	"biaswatch/internal/infra/catalog"
	"biaswatch/internal/observability/logging"
	"biaswatch/internal/usecase/analysis"
	"biaswatch/internal/usecase/ingest"
	"biaswatch/internal/usecase/search"
	"biaswatch/pkg/config"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "biaswatch",
		Short:        "News ingestion and bias analysis",
		Long:         "Runs ingestion, analysis batches and searches against the store configured by DB_DRIVER and DATABASE_URL.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = logging.NewTextLogger(opts.verbose)
			slog.SetDefault(opts.logger)
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		ingestCmd(opts),
		ingestAllCmd(opts),
		analyzeCmd(opts),
		searchCmd(opts),
		sourcesCmd(),
	)
	return root
}

// withApp wires the application for the duration of one command.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app.App) error) error {
	a, err := app.New(ctx, opts.logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func ingestCmd(opts *rootOptions) *cobra.Command {
	var (
		category string
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest every active source of one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := entity.ParseCategory(category)
			if err != nil {
				return err
			}
			if err := ingest.ValidatePageSize(pageSize); err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				res, err := a.Category.IngestCategory(cmd.Context(), c, pageSize)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category ("+categoryList()+")")
	cmd.Flags().IntVar(&pageSize, "page-size", ingest.DefaultPageSize, "Most recent items kept per category")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func ingestAllCmd(opts *rootOptions) *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "ingest-all",
		Short: "Ingest every category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ingest.ValidatePageSize(pageSize); err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				summary, err := a.Global.IngestAll(cmd.Context(), pageSize)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), summary.String())
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", ingest.DefaultPageSize, "Most recent items kept per category")
	return cmd
}

func analyzeCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one batch of unanalyzed articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := analysis.ValidateLimit(limit); err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				out, err := a.Scheduler.AnalyzeBatch(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", analysis.DefaultLimit, "Articles in the batch (1-50)")
	return cmd
}

func searchCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored articles, re-ingesting matching categories when nothing is found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if err := search.ValidateQuery(strings.TrimSpace(query)); err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				res, err := a.Search.Search(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				return printSearch(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum results")
	return cmd
}

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Source catalog tools",
	}

	validate := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a source catalog file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetEnvString("SOURCES_FILE", catalog.DefaultPath)
			if len(args) == 1 {
				path = args[0]
			}
			sources, err := catalog.Load(path)
			if err != nil {
				return err
			}

			active := make(map[entity.Category]int)
			inactive := 0
			for _, s := range sources {
				if !s.Active {
					inactive++
					continue
				}
				active[s.Category]++
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d sources (%d inactive)\n", path, len(sources), inactive)
			for _, c := range entity.AllCategories() {
				fmt.Fprintf(out, "  %-14s %d\n", c, active[c])
			}
			return nil
		},
	}
	cmd.AddCommand(validate)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSearch(w io.Writer, res search.Result) error {
	fmt.Fprintf(w, "level %s, %d result(s) for %q\n", res.Level, len(res.Articles), res.Query)
	if len(res.Categories) > 0 {
		fmt.Fprintf(w, "re-ingested: %s\n", joinCategories(res.Categories))
	}
	for _, a := range res.Articles {
		fmt.Fprintf(w, "- [%s] %s\n  %s\n", a.Category, a.Title, a.URL)
	}
	if res.Suggestion != nil {
		fmt.Fprintf(w, "%s\n%s\n", res.Suggestion.Message, res.Suggestion.ExternalLink)
	}
	return nil
}

func categoryList() string {
	return joinCategories(entity.AllCategories())
}

func joinCategories(cs []entity.Category) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
