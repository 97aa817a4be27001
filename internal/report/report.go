// Package report assembles the release status of a series: normalized
// blueprints split into active and completed sets, review links and health
// findings for the active set, and the cycle gauge.
package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/relstatus/internal/blueprint"
	"github.com/joescharf/relstatus/internal/gauge"
	"github.com/joescharf/relstatus/internal/health"
	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/review"
)

// BlueprintSource lists the blueprints of a project series.
type BlueprintSource interface {
	ValidSpecifications(ctx context.Context, project, series string) ([]models.RawBlueprint, error)
}

// ReviewSource builds the review index for a set of projects.
type ReviewSource interface {
	FetchIndex(ctx context.Context, projects []string) (models.ReviewIndex, error)
}

// Options describe one run.
type Options struct {
	Series      string
	Products    []string
	Schedule    []gauge.Entry
	ReleaseDate time.Time
}

// Report is everything a renderer needs.
type Report struct {
	RunID       string                      `json:"run_id"`
	Series      string                      `json:"series"`
	GeneratedAt time.Time                   `json:"generated_at"`
	ReleaseDate time.Time                   `json:"release_date"`
	Gauge       gauge.Description           `json:"gauge"`
	Health      health.Summary              `json:"health"`
	Active      []*models.EnrichedBlueprint `json:"active"`
	Completed   []*models.EnrichedBlueprint `json:"completed"`
}

// Find returns the blueprint with the given name from either set.
func (r *Report) Find(name string) (*models.EnrichedBlueprint, bool) {
	for _, set := range [][]*models.EnrichedBlueprint{r.Active, r.Completed} {
		for _, bp := range set {
			if bp.Name == name {
				return bp, true
			}
		}
	}
	return nil, false
}

// Builder fetches and assembles reports.
type Builder struct {
	Blueprints BlueprintSource
	Reviews    ReviewSource
	Correlator *review.Correlator
	Health     *health.Engine

	Now  func() time.Time
	Logf func(format string, a ...any)
}

// NewBuilder returns a Builder with the default correlator and rule engine.
func NewBuilder(bps BlueprintSource, reviews ReviewSource) *Builder {
	return &Builder{
		Blueprints: bps,
		Reviews:    reviews,
		Correlator: review.NewCorrelator(""),
		Health:     health.NewEngine(),
		Now:        time.Now,
		Logf:       func(string, ...any) {},
	}
}

// Build runs the whole pipeline. Any fetch or data fault aborts the run; no
// partial report is returned.
func (b *Builder) Build(ctx context.Context, opts Options) (*Report, error) {
	// progress counts calendar days in the clock's own time zone
	now := b.Now()

	g, err := gauge.Compute(opts.Schedule, opts.ReleaseDate, now)
	if err != nil {
		return nil, fmt.Errorf("compute gauge: %w", err)
	}

	var raws []models.RawBlueprint
	for _, p := range opts.Products {
		bps, err := b.Blueprints.ValidSpecifications(ctx, p, opts.Series)
		if err != nil {
			return nil, fmt.Errorf("fetch blueprints for %s: %w", p, err)
		}
		b.Logf("%s: %d blueprints in %s", p, len(bps), opts.Series)
		raws = append(raws, bps...)
	}

	idx, err := b.Reviews.FetchIndex(ctx, opts.Products)
	if err != nil {
		return nil, err
	}

	active, completed, err := b.Assemble(raws, idx)
	if err != nil {
		return nil, err
	}

	return &Report{
		RunID:       ulid.Make().String(),
		Series:      opts.Series,
		GeneratedAt: now.UTC(),
		ReleaseDate: opts.ReleaseDate,
		Gauge:       g,
		Health:      health.Summarize(active),
		Active:      active,
		Completed:   completed,
	}, nil
}

// Assemble normalizes raws and splits them by implementation status. Only
// active blueprints are linked to reviews and checked against the rules.
func (b *Builder) Assemble(raws []models.RawBlueprint, idx models.ReviewIndex) (active, completed []*models.EnrichedBlueprint, err error) {
	active = []*models.EnrichedBlueprint{}
	completed = []*models.EnrichedBlueprint{}

	for _, raw := range raws {
		bp, err := blueprint.Normalize(raw)
		if err != nil {
			return nil, nil, err
		}
		if bp.Completed() {
			completed = append(completed, bp)
			continue
		}
		bp.LinkedReviews = b.Correlator.Correlate(bp.Name, bp.Project, bp.Whiteboard, idx)
		b.Health.Apply(bp)
		active = append(active, bp)
	}

	slices.SortStableFunc(active, byUrgency)
	slices.SortStableFunc(completed, byUrgency)
	return active, completed, nil
}

func byUrgency(a, b *models.EnrichedBlueprint) int {
	return cmp.Or(
		cmp.Compare(a.PriorityIndex, b.PriorityIndex),
		a.MilestoneDate.Compare(b.MilestoneDate),
		cmp.Compare(a.Name, b.Name),
	)
}
