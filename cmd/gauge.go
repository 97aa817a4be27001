package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/relstatus/internal/gauge"
	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/output"
	"github.com/joescharf/relstatus/internal/report"
)

var gaugeDate string

var gaugeCmd = &cobra.Command{
	Use:   "gauge",
	Short: "Show the release cycle gauge",
	Long: `Compute the release cycle gauge from the configured milestones and
release date. No service is contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadGaugeConfig()
		if err != nil {
			return err
		}
		today := time.Now()
		if gaugeDate != "" {
			if today, err = time.Parse(time.DateOnly, gaugeDate); err != nil {
				return fmt.Errorf("--date: expected YYYY-MM-DD: %w", err)
			}
		}
		g, err := gauge.Compute(cfg.Schedule, cfg.ReleaseDate, today)
		if err != nil {
			return err
		}
		return gaugeRun(cfg, g)
	},
}

func init() {
	gaugeCmd.Flags().StringVar(&gaugeDate, "date", "", "Evaluate the gauge on this date (YYYY-MM-DD) instead of today")
	rootCmd.AddCommand(gaugeCmd)
}

func gaugeRun(cfg *RunConfig, g gauge.Description) error {
	if cfg.Series != "" {
		fmt.Fprintf(ui.Out, "%s, release %s\n\n", output.Cyan(cfg.Series), cfg.ReleaseDate.Format("2006-01-02"))
	}

	table := ui.Table([]string{"Mark", "Day"})
	table.Append([]string{"start", strconv.Itoa(models.GaugeOrigin)})
	table.Append([]string{output.Green("green"), strconv.Itoa(g.GreenThreshold)})
	table.Append([]string{output.Yellow("yellow"), strconv.Itoa(g.YellowThreshold)})
	table.Append([]string{output.Red("red"), strconv.Itoa(g.RedThreshold)})
	table.Append([]string{"release", strconv.Itoa(g.End)})
	table.Render()

	fmt.Fprintln(ui.Out)
	ui.Info("Today is day %d: %s", g.Progress, output.ZoneColor(g.Zone()))
	ui.VerboseLog("Phases: %v", report.TickLabels(g.Ticks))
	ui.VerboseLog("Ticks: %s", g.Ticks)
	return nil
}
