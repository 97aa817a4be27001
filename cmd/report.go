package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/joescharf/relstatus/internal/report"
)

var (
	reportFormat string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the release status report",
	Long: `Fetch blueprints and reviews for every configured product and render
the release status report as JSON, CSV, Markdown, or a standalone HTML page.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd.Context())
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "html", "Output format: json, csv, markdown, html")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

func reportRun(ctx context.Context) error {
	if !slices.Contains(report.Formats, reportFormat) && reportFormat != "md" {
		return fmt.Errorf("%w: %s", report.ErrUnknownFormat, reportFormat)
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if dryRun {
		ui.DryRunMsg("Would fetch %s blueprints for %v and render %s", cfg.Series, cfg.Products, reportFormat)
		return nil
	}

	rep, err := openPipeline(cfg).Report(ctx)
	if err != nil {
		return err
	}

	if reportOutput == "" {
		return report.Render(ui.Out, rep, reportFormat)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, rep, reportFormat); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(reportOutput), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(reportOutput, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	ui.Success("Report %s written to %s (%d active, %d completed)", rep.RunID, reportOutput, len(rep.Active), len(rep.Completed))
	return nil
}
