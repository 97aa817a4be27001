package health

import (
	"github.com/joescharf/relstatus/internal/models"
)

// Severity decides which message list a triggered rule feeds.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// Rule is one declarative health check over an enriched blueprint.
type Rule struct {
	Name     string
	Severity Severity
	Message  string
	Enabled  bool
	When     func(bp *models.EnrichedBlueprint) bool
}

// Rules is the fixed rule table. Every enabled rule is evaluated on its own,
// so several messages may be reported for one blueprint.
var Rules = []Rule{
	{
		Name:     "design-not-approved",
		Severity: SeverityWarning,
		Message:  "design not approved",
		// Needs the definition status, which the planning client does not fetch.
		Enabled: false,
		When:    func(*models.EnrichedBlueprint) bool { return false },
	},
	{
		Name:     "topic-missing",
		Severity: SeverityWarning,
		Message:  "topic missing on reviews",
		Enabled:  true,
		When: func(bp *models.EnrichedBlueprint) bool {
			return bp.Implementation == models.ImplementationNeedsCodeReview && len(bp.LinkedReviews) == 0
		},
	},
	{
		Name:     "should-be-started",
		Severity: SeverityWarning,
		Message:  "has branch, should be marked started",
		Enabled:  true,
		When: func(bp *models.EnrichedBlueprint) bool {
			return len(bp.LinkedReviews) > 0 && bp.ImplementationIndex > models.StartedThreshold
		},
	},
	{
		Name:     "status-unknown",
		Severity: SeverityError,
		Message:  "status needs to be set",
		Enabled:  true,
		When: func(bp *models.EnrichedBlueprint) bool {
			return bp.Implementation == models.ImplementationUnknown
		},
	},
	{
		Name:     "no-owner",
		Severity: SeverityError,
		Message:  "no assignee or drafter",
		Enabled:  true,
		When: func(bp *models.EnrichedBlueprint) bool {
			return !bp.HasAssignee() && !bp.HasDrafter()
		},
	},
	{
		Name:     "tentative-owner",
		Severity: SeverityWarning,
		Message:  "no assignee yet",
		Enabled:  true,
		When: func(bp *models.EnrichedBlueprint) bool {
			return !bp.HasAssignee() && bp.HasDrafter()
		},
	},
	{
		Name:     "team-assignee",
		Severity: SeverityWarning,
		Message:  "should be assigned to an individual",
		Enabled:  true,
		When: func(bp *models.EnrichedBlueprint) bool {
			return bp.HasAssignee() && bp.Assignee.IsTeam
		},
	},
}

// Engine evaluates the rule table.
type Engine struct {
	rules []Rule
}

// NewEngine returns an Engine over the default rule table.
func NewEngine() *Engine {
	return &Engine{rules: Rules}
}

// Evaluate returns the warning and error messages triggered by bp.
// Both slices are non-nil.
func (e *Engine) Evaluate(bp *models.EnrichedBlueprint) (warnings, errs []string) {
	warnings, errs = []string{}, []string{}
	for _, r := range e.rules {
		if !r.Enabled || !r.When(bp) {
			continue
		}
		switch r.Severity {
		case SeverityError:
			errs = append(errs, r.Message)
		default:
			warnings = append(warnings, r.Message)
		}
	}
	return warnings, errs
}

// Apply evaluates bp and stores the messages on it.
func (e *Engine) Apply(bp *models.EnrichedBlueprint) {
	bp.Warnings, bp.Errors = e.Evaluate(bp)
}

// Summary condenses the health of a blueprint set.
type Summary struct {
	Total        int `json:"total"`
	WithWarnings int `json:"with_warnings"`
	WithErrors   int `json:"with_errors"`
	Score        int `json:"score"` // 0-100, share of blueprints with no message at all
}

// Summarize computes a Summary over blueprints already passed through Apply.
func Summarize(bps []*models.EnrichedBlueprint) Summary {
	s := Summary{Total: len(bps)}
	if len(bps) == 0 {
		s.Score = 100 // nothing tracked = healthy
		return s
	}

	clean := 0
	for _, bp := range bps {
		if len(bp.Warnings) > 0 {
			s.WithWarnings++
		}
		if len(bp.Errors) > 0 {
			s.WithErrors++
		}
		if len(bp.Warnings) == 0 && len(bp.Errors) == 0 {
			clean++
		}
	}
	s.Score = clean * 100 / len(bps)
	return s
}
