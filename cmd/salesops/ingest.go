package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ggitteam/salesops/internal/config"
	"github.com/ggitteam/salesops/internal/database"
	"github.com/ggitteam/salesops/internal/export"
	"github.com/ggitteam/salesops/internal/model"
	"github.com/ggitteam/salesops/internal/parse"
	"github.com/ggitteam/salesops/internal/repository"
	"github.com/ggitteam/salesops/internal/session"
)

type filterFlags struct {
	from   string
	to     string
	search string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&f.to, "to", "", "End date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "Case-insensitive text filter over displayed columns")
}

// bounds resolves the date flags; when both are empty the default trailing
// window from the config applies, matching the dashboard's initial view.
func (f *filterFlags) bounds(cfg *config.Config) (from, to time.Time, err error) {
	if f.from == "" && f.to == "" {
		now := time.Now()
		return now.AddDate(0, 0, -cfg.DefaultRangeDays), now, nil
	}
	if f.from != "" {
		from, err = time.ParseInLocation("2006-01-02", f.from, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q", f.from)
		}
	}
	if f.to != "" {
		to, err = time.ParseInLocation("2006-01-02", f.to, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q", f.to)
		}
	}
	return from, to, nil
}

func newImportCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Parse a workbook and persist it directly, bypassing the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rows, err := parseWorkbookFile(args[0], sheet)
			if err != nil {
				return err
			}
			if warnings := parse.WarningCount(rows); warnings > 0 {
				log.Warn().Int("rows", len(rows)).Int("warnings", warnings).Msg("Parsed with warnings")
			} else {
				log.Info().Int("rows", len(rows)).Msg("Parsed successfully")
			}

			pool, repo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			upload, err := repo.CreateUpload(ctx, args[0], len(rows))
			if err != nil {
				return err
			}
			if err := repo.MarkProcessing(ctx, upload.ID); err != nil {
				return err
			}
			progress := func(done, total int) {
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded rows %d of %d...\n", done, total)
			}
			if _, err := repo.ImportRows(ctx, upload.ID, rows, progress); err != nil {
				_ = repo.MarkFailed(ctx, upload.ID, err.Error())
				return fmt.Errorf("import failed: %w", err)
			}
			if err := repo.MarkCompleted(ctx, upload.ID, len(rows)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Import complete. %d rows uploaded (batch %s).\n", len(rows), upload.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", parse.AllSheets, "Sheet to import (default: all sheets)")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var sheet string
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "preview <file.xlsx>",
		Short: "Parse a workbook and print the filtered rows without persisting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rows, err := parseWorkbookFile(args[0], sheet)
			if err != nil {
				return err
			}

			sess := session.New()
			sess.SetPreview(rows)
			if err := applyFilterFlags(sess, &filters, cfg); err != nil {
				return err
			}
			printSessionView(cmd, sess)

			for _, row := range rows {
				for _, warning := range row.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", parse.AllSheets, "Sheet to parse (default: all sheets)")
	filters.register(cmd)
	return cmd
}

func newRowsCmd() *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Print persisted rows for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pool, repo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			sess, err := loadPersistedSession(ctx, repo, cfg, &filters)
			if err != nil {
				return err
			}
			printSessionView(cmd, sess)
			return nil
		},
	}
	filters.register(cmd)
	return cmd
}

func newExportCmd() *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "export <out.csv>",
		Short: "Export the persisted view to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pool, repo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			sess, err := loadPersistedSession(ctx, repo, cfg, &filters)
			if err != nil {
				return err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer out.Close()
			visible := sess.Visible()
			if err := export.WriteCSV(out, model.SaleColumns, visible); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s.\n", len(visible), args[0])
			return nil
		},
	}
	filters.register(cmd)
	return cmd
}

func parseWorkbookFile(path, sheet string) ([]model.SaleRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return parse.ExtractRows(f, sheet)
}

func openRepository(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, *repository.SalesRepository, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return pool, repository.NewSalesRepository(pool), nil
}

func applyFilterFlags(sess *session.Session, filters *filterFlags, cfg *config.Config) error {
	from, to, err := filters.bounds(cfg)
	if err != nil {
		return err
	}
	sess.SetDateRange(from, to)
	sess.SetSearch(filters.search)
	return nil
}

func loadPersistedSession(ctx context.Context, repo *repository.SalesRepository, cfg *config.Config, filters *filterFlags) (*session.Session, error) {
	from, to, err := filters.bounds(cfg)
	if err != nil {
		return nil, err
	}
	var start, end time.Time
	if !from.IsZero() {
		start = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	}
	if !to.IsZero() {
		end = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, to.Location())
	}
	rows, err := repo.ListRows(ctx, start, end)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	sess := session.New()
	sess.SetPersisted(rows, repo.ItemsForRows(ctx, ids))
	sess.SetSearch(filters.search)
	return sess, nil
}

func printSessionView(cmd *cobra.Command, sess *session.Session) {
	visible := sess.Visible()
	cards := sess.Cards()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for i, col := range model.SaleColumns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col.Label)
	}
	fmt.Fprintln(w)
	for _, row := range visible {
		for i, col := range model.SaleColumns {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, row.Field(col.Key))
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d rows, %d unique buyers\n", len(visible), cards.UniqueBuyers)
	for _, t := range model.SupportedTypes {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", t, cards.Totals[t])
	}
}
