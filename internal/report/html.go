package report

import (
	"embed"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/joescharf/relstatus/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"milestoneDate": MilestoneDate,
	"owner":         ownerHTML,
	"tickLabels":    TickLabels,
	"merged": func(r models.LinkedReview) bool {
		return r.Tag == models.ReviewTagMerged
	},
	"origin": func() int { return models.GaugeOrigin },
}).ParseFS(templateFS, "templates/report.html"))

// RenderHTML writes the report as a standalone HTML page.
func RenderHTML(w io.Writer, r *Report) error {
	return pageTemplate.Execute(w, r)
}

// ownerHTML escapes the display name and keeps the tentative emphasis.
func ownerHTML(display string) template.HTML {
	inner, tentative := strings.CutPrefix(display, models.TentativeOpen)
	if tentative {
		inner = strings.TrimSuffix(inner, models.TentativeClose)
		return template.HTML("<i>" + template.HTMLEscapeString(inner) + "</i>")
	}
	return template.HTML(template.HTMLEscapeString(display))
}

// TickLabels extracts the phase labels from a gauge tick string.
func TickLabels(ticks string) []string {
	var labels []string
	for _, t := range strings.Split(ticks, ",") {
		t = strings.Trim(t, "'")
		if t != "" {
			labels = append(labels, t)
		}
	}
	return labels
}
