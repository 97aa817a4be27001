package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joescharf/relstatus/internal/models"
)

// ErrUnknownFormat is returned by Render for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown format")

// Formats lists the names accepted by Render.
var Formats = []string{"json", "csv", "markdown", "html"}

// Render writes r to w in the named format.
func Render(w io.Writer, r *Report, format string) error {
	switch format {
	case "json":
		return RenderJSON(w, r)
	case "csv":
		return RenderCSV(w, r)
	case "markdown", "md":
		return RenderMarkdown(w, r)
	case "html":
		return RenderHTML(w, r)
	default:
		return fmt.Errorf("%w: %s (use: %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
}

func RenderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var csvHeader = []string{
	"Set", "Project", "Name", "Priority", "Implementation", "Milestone",
	"Milestone Date", "Owner", "Reviews", "Warnings", "Errors",
}

func RenderCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	write := func(set string, bps []*models.EnrichedBlueprint) error {
		for _, bp := range bps {
			err := cw.Write([]string{
				set, bp.Project, bp.Name, bp.Priority, bp.Implementation,
				bp.MilestoneName, MilestoneDate(bp), bp.OwnerName,
				reviewList(bp.LinkedReviews),
				strings.Join(bp.Warnings, "; "),
				strings.Join(bp.Errors, "; "),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := write("active", r.Active); err != nil {
		return err
	}
	if err := write("completed", r.Completed); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func RenderMarkdown(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s release status\n\n", r.Series)
	fmt.Fprintf(&b, "Generated %s. Release %s, day %d of %d (%s).\n\n",
		r.GeneratedAt.Format("2006-01-02 15:04 MST"), r.ReleaseDate.Format("2006-01-02"),
		r.Gauge.Progress, r.Gauge.End, r.Gauge.Zone())

	fmt.Fprintf(&b, "## Active (%d, health %d)\n\n", len(r.Active), r.Health.Score)
	b.WriteString("| Blueprint | Priority | Status | Milestone | Owner | Reviews | Notes |\n")
	b.WriteString("|-----------|----------|--------|-----------|-------|---------|-------|\n")
	for _, bp := range r.Active {
		notes := append(append([]string{}, bp.Errors...), bp.Warnings...)
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			mdLink(bp.Name, bp.WebLink), bp.Priority, bp.Implementation,
			bp.MilestoneName, mdCell(bp.OwnerDisplay), mdReviews(bp.LinkedReviews),
			mdCell(strings.Join(notes, ", ")))
	}

	fmt.Fprintf(&b, "\n## Completed (%d)\n\n", len(r.Completed))
	b.WriteString("| Blueprint | Priority | Milestone | Owner |\n")
	b.WriteString("|-----------|----------|-----------|-------|\n")
	for _, bp := range r.Completed {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			mdLink(bp.Name, bp.WebLink), bp.Priority, bp.MilestoneName, mdCell(bp.OwnerDisplay))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// MilestoneDate formats the milestone target, empty when unscheduled.
func MilestoneDate(bp *models.EnrichedBlueprint) string {
	if bp.MilestoneDate.Equal(models.FarFuture) {
		return ""
	}
	return bp.MilestoneDate.Format("2006-01-02")
}

func reviewList(reviews []models.LinkedReview) string {
	parts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		parts = append(parts, strconv.Itoa(r.Number)+":"+string(r.Tag))
	}
	return strings.Join(parts, " ")
}

func mdReviews(reviews []models.LinkedReview) string {
	parts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		label := strconv.Itoa(r.Number)
		if r.Tag == models.ReviewTagMerged {
			label = "~~" + label + "~~"
		}
		parts = append(parts, mdLink(label, r.URL))
	}
	return strings.Join(parts, " ")
}

func mdLink(text, url string) string {
	if url == "" {
		return mdCell(text)
	}
	return "[" + mdCell(text) + "](" + url + ")"
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
