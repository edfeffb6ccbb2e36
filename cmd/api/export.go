package main

import (
	"errors"
	"fmt"
	"time"

	"CuteTutor/internal/logging"
	"CuteTutor/internal/models"
	"CuteTutor/internal/report"
	"CuteTutor/internal/storage"

	"github.com/spf13/cobra"
)

var (
	exportUser string
	exportDate string
	exportOut  string
)

var exportReportCmd = &cobra.Command{
	Use:   "export-report",
	Short: "Render a saved weekly report to PDF without calling the model",
	Example: `  cutetutor export-report --user gildong
  cutetutor export-report --user gildong --date 2024-05-12 --out report.pdf`,
	RunE: runExportReport,
}

func init() {
	exportReportCmd.Flags().StringVar(&exportUser, "user", "", "username (required)")
	exportReportCmd.Flags().StringVar(&exportDate, "date", "", "report date YYYY-MM-DD (default: latest report)")
	exportReportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default: the report directory of the user)")
	_ = exportReportCmd.MarkFlagRequired("user")
}

func runExportReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ResolvePaths(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	backend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	repo := storage.NewRepository(backend, logger)
	defer repo.Close()

	user, err := repo.Get(cmd.Context(), exportUser)
	if err != nil {
		return fmt.Errorf("user %q: %w", exportUser, err)
	}

	saved, err := pickReport(user, exportDate)
	if err != nil {
		return err
	}

	day, err := time.Parse(models.DateLayout, saved.Date)
	if err != nil {
		return fmt.Errorf("report has an invalid date %q: %w", saved.Date, err)
	}

	var path string
	if exportOut != "" {
		path, err = report.RenderPDF(saved.Report, exportOut, cfg.FontPath)
	} else {
		path, err = report.NewWriter(cfg.ReportDir, cfg.FontPath).Render(exportUser, report.Filename(exportUser, day), saved.Report)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// pickReport returns the first report saved on date, or the latest one when
// date is empty.
func pickReport(user *models.User, date string) (models.Report, error) {
	if date == "" {
		if len(user.Reports) == 0 {
			return models.Report{}, errors.New("user has no saved reports")
		}
		return user.Reports[len(user.Reports)-1], nil
	}
	saved, found := storage.FindReport(user, date)
	if !found {
		return models.Report{}, fmt.Errorf("no report saved on %s", date)
	}
	return saved, nil
}
