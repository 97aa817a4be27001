// Package gerrit collects recent changes from a Gerrit review service.
//
// Gerrit query results are paged: each page lists changes followed by a stats
// row carrying the number of rows in the page. The next page is requested by
// resuming after the sort key of the last change seen. Collection for a project
// stops at a zero row count, at a page without changes, or when a record
// repeats one already collected. Each change number is reported once.
package gerrit

import (
	"context"
	"fmt"
	"iter"

	"github.com/joescharf/relstatus/internal/models"
)

// Filter selects changes by review state.
type Filter struct {
	Name  string
	Terms []string
}

var (
	FilterMerged      = Filter{Name: "merged", Terms: []string{"status:merged"}}
	FilterUnderReview = Filter{Name: "open", Terms: []string{"status:open"}}
)

// Request is one page query.
type Request struct {
	Query  []string
	Resume string // sort key to resume after; empty for the first page
}

// Row is one line of a query response: a change, or the stats row closing a
// page when Change is nil.
type Row struct {
	Change   *models.RawChange
	RowCount int
}

// Querier runs a single page query against the review service.
type Querier interface {
	Query(ctx context.Context, req Request) ([]Row, error)
}

// Config scopes the queries issued by a Fetcher.
type Config struct {
	Branch        string // e.g. "master"; empty means any branch
	MaxAge        string // e.g. "2mon"; changes older than this are skipped
	ProjectPrefix string // e.g. "openstack"; prepended to project names
}

// Fetcher pages through query results project by project.
type Fetcher struct {
	q    Querier
	cfg  Config
	Logf func(format string, a ...any)
}

// NewFetcher returns a Fetcher issuing queries through q.
func NewFetcher(q Querier, cfg Config) *Fetcher {
	if cfg.MaxAge == "" {
		cfg.MaxAge = models.DefaultReviewMaxAge
	}
	return &Fetcher{q: q, cfg: cfg, Logf: func(string, ...any) {}}
}

// Query returns the search terms selecting filter's changes in project.
func (f *Fetcher) Query(project string, filter Filter) []string {
	var terms []string
	if f.cfg.Branch != "" {
		terms = append(terms, "branch:"+f.cfg.Branch, "AND")
	}
	terms = append(terms, "NOT", "age:"+f.cfg.MaxAge, "AND", "project:"+f.scope(project))
	for _, t := range filter.Terms {
		terms = append(terms, "AND", t)
	}
	return terms
}

func (f *Fetcher) scope(project string) string {
	if f.cfg.ProjectPrefix == "" {
		return project
	}
	return f.cfg.ProjectPrefix + "/" + project
}

// Changes lazily yields the changes of one project in service order. Iteration
// stops after the first error.
func (f *Fetcher) Changes(ctx context.Context, project string, filter Filter) iter.Seq2[models.RawChange, error] {
	return func(yield func(models.RawChange, error) bool) {
		query := f.Query(project, filter)
		seen := make(map[models.RawChange]struct{})
		numbers := make(map[int]struct{})
		resume := ""

		for page := 1; ; page++ {
			rows, err := f.q.Query(ctx, Request{Query: query, Resume: resume})
			if err != nil {
				yield(models.RawChange{}, fmt.Errorf("query %s changes for %s (page %d): %w", filter.Name, project, page, err))
				return
			}

			added, moved := 0, 0
			for _, row := range rows {
				if row.Change == nil {
					if row.RowCount == 0 {
						return
					}
					continue
				}
				if _, dup := seen[*row.Change]; dup {
					f.Logf("%s: repeated change %d on page %d, stopping", project, row.Change.Number, page)
					return
				}
				seen[*row.Change] = struct{}{}
				resume = row.Change.SortKey
				moved++

				// an updated change can reappear later with a new sort key
				if _, dup := numbers[row.Change.Number]; dup {
					continue
				}
				numbers[row.Change.Number] = struct{}{}
				if !yield(*row.Change, nil) {
					return
				}
				added++
			}
			if moved == 0 {
				return
			}
			f.Logf("%s: %d %s changes on page %d", project, added, filter.Name, page)
		}
	}
}

// Fetch collects filter's changes for every project. Any query failure aborts
// the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, projects []string, filter Filter) (models.ChangeSet, error) {
	set := make(models.ChangeSet, len(projects))
	for _, p := range projects {
		changes := []models.RawChange{}
		for ch, err := range f.Changes(ctx, p, filter) {
			if err != nil {
				return nil, err
			}
			changes = append(changes, ch)
		}
		set[p] = changes
	}
	return set, nil
}

// FetchIndex builds the merged and under-review change sets for projects.
func (f *Fetcher) FetchIndex(ctx context.Context, projects []string) (models.ReviewIndex, error) {
	merged, err := f.Fetch(ctx, projects, FilterMerged)
	if err != nil {
		return models.ReviewIndex{}, fmt.Errorf("fetch merged changes: %w", err)
	}
	open, err := f.Fetch(ctx, projects, FilterUnderReview)
	if err != nil {
		return models.ReviewIndex{}, fmt.Errorf("fetch open changes: %w", err)
	}
	return models.ReviewIndex{Merged: merged, UnderReview: open}, nil
}
