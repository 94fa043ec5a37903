package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/app"
	"github.com/shrimpsizemoose/syllabus/internal/importer"
	"github.com/shrimpsizemoose/syllabus/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		sheet      string
		fromGSheet bool
		cronExpr   string
	)

	cmd := &cobra.Command{
		Use:   "importer [file.xlsx|file.csv]",
		Short: "Load course metadata from a spreadsheet into the syllabus database",
		Long: `Reads a header row plus course rows and inserts each course once.
Courses whose code already exists are skipped, so re-running is safe.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromGSheet == (len(args) == 1) {
				return fmt.Errorf("pass either a spreadsheet file or --gsheet")
			}

			config, err := app.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, err := app.NewStore(config.Database.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ApplyMigrations(migrations.FS); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}

			var src importer.RowSource
			if fromGSheet {
				gs := config.Import.GSheet
				src, err = importer.NewGSheetSource(cmd.Context(), gs.SheetID, gs.Range, gs.CredentialsPath)
			} else {
				if sheet == "" {
					sheet = config.Import.Sheet
				}
				src, err = importer.SourceFor(args[0], sheet)
			}
			if err != nil {
				return err
			}

			cols := config.Import.Columns
			im := importer.New(store, importer.Columns{
				Code:     cols.Code,
				Title:    cols.Title,
				Area:     cols.Area,
				Year:     cols.Year,
				Schedule: cols.Schedule,
			})

			if cronExpr == "" {
				_, err := im.Import(cmd.Context(), src)
				return err
			}
			return runScheduled(cmd, im, src, cronExpr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.toml", "Path to config file")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet to read (default: first sheet)")
	cmd.Flags().BoolVar(&fromGSheet, "gsheet", false, "Read the Google Sheet configured in [import.gsheet]")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Keep running and re-import on this cron schedule (UTC)")

	return cmd
}

func runScheduled(cmd *cobra.Command, im *importer.Importer, src importer.RowSource, cronExpr string) error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	_, err := scheduler.Cron(cronExpr).Do(func() {
		if _, err := im.Import(cmd.Context(), src); err != nil {
			logger.Error.Printf("Scheduled import failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule import: %w", err)
	}

	scheduler.StartAsync()
	logger.Info.Printf("Importing %s on schedule %q", src.Name(), cronExpr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	scheduler.Stop()
	logger.Info.Println("Importer stopped")
	return nil
}
