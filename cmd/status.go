package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/output"
	"github.com/joescharf/relstatus/internal/report"
)

var (
	statusFlagged bool
	statusProject string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show active blueprints with their health",
	Long: `Show a table of the active blueprints of the series, most urgent first,
with linked review counts and the warnings and errors raised for each.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rep, err := openPipeline(cfg).Report(ctx)
		if err != nil {
			return err
		}
		return statusRun(rep)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlagged, "flagged", false, "Show only blueprints with warnings or errors")
	statusCmd.Flags().StringVarP(&statusProject, "project", "p", "", "Filter by project")
	rootCmd.AddCommand(statusCmd)
}

func statusRun(rep *report.Report) error {
	fmt.Fprintf(ui.Out, "%s: day %d of %d (%s), health %s\n\n",
		output.Cyan(rep.Series), rep.Gauge.Progress, rep.Gauge.End,
		output.ZoneColor(rep.Gauge.Zone()), output.HealthColor(rep.Health.Score))

	if len(rep.Active) == 0 {
		ui.Info("No active blueprints in %s.", rep.Series)
		return nil
	}

	table := ui.Table([]string{"Project", "Blueprint", "Priority", "Status", "Milestone", "Owner", "Reviews", "Notes"})

	shown := 0
	for _, bp := range rep.Active {
		if statusProject != "" && bp.Project != statusProject {
			continue
		}
		if statusFlagged && len(bp.Warnings) == 0 && len(bp.Errors) == 0 {
			continue
		}
		table.Append([]string{
			bp.Project,
			output.Cyan(bp.Name),
			bp.Priority,
			output.ImplementationColor(bp.Implementation),
			bp.MilestoneName,
			ownerCell(bp),
			formatReviewCounts(bp.LinkedReviews),
			formatNotes(bp),
		})
		shown++
	}

	if shown == 0 {
		ui.Success("Nothing to show.")
		return nil
	}
	table.Render()
	fmt.Fprintln(ui.Out)
	ui.Info("%d active, %d with warnings, %d with errors, %d completed",
		rep.Health.Total, rep.Health.WithWarnings, rep.Health.WithErrors, len(rep.Completed))
	return nil
}

// ownerCell shows a drafter-sourced owner with a trailing marker instead of
// the HTML emphasis.
func ownerCell(bp *models.EnrichedBlueprint) string {
	if bp.OwnerName == "" {
		return "-"
	}
	if name, ok := strings.CutPrefix(bp.OwnerDisplay, models.TentativeOpen); ok {
		return strings.TrimSuffix(name, models.TentativeClose) + " (drafter)"
	}
	return bp.OwnerDisplay
}

func formatReviewCounts(reviews []models.LinkedReview) string {
	if len(reviews) == 0 {
		return "-"
	}
	merged := 0
	for _, r := range reviews {
		if r.Tag == models.ReviewTagMerged {
			merged++
		}
	}
	return fmt.Sprintf("%d/%d", merged, len(reviews)-merged)
}

func formatNotes(bp *models.EnrichedBlueprint) string {
	var notes []string
	for _, e := range bp.Errors {
		notes = append(notes, output.Red(e))
	}
	for _, w := range bp.Warnings {
		notes = append(notes, output.Yellow(w))
	}
	return strings.Join(notes, ", ")
}
