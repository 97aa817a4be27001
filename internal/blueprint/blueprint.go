// Package blueprint turns raw planning records into ranked, owner-resolved
// blueprints.
package blueprint

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joescharf/relstatus/internal/models"
)

// ownerSource is one candidate in the owner fallback chain.
type ownerSource struct {
	pick      func(*models.RawBlueprint) *models.Person
	tentative bool
}

// ownerChain is consulted in order; the first present person owns the blueprint.
var ownerChain = []ownerSource{
	{pick: func(b *models.RawBlueprint) *models.Person { return b.Assignee }},
	{pick: func(b *models.RawBlueprint) *models.Person { return b.Drafter }, tentative: true},
}

// Normalize ranks a raw blueprint and resolves its milestone and owner.
// Linked reviews, warnings and errors are left empty.
func Normalize(raw models.RawBlueprint) (*models.EnrichedBlueprint, error) {
	pi, err := models.PriorityIndex(raw.Priority)
	if err != nil {
		return nil, fmt.Errorf("blueprint %s: %w", raw.Name, err)
	}
	ii, err := models.ImplementationIndex(raw.Implementation)
	if err != nil {
		return nil, fmt.Errorf("blueprint %s: %w", raw.Name, err)
	}

	bp := &models.EnrichedBlueprint{
		RawBlueprint:        raw,
		PriorityIndex:       pi,
		ImplementationIndex: ii,
		MilestoneDate:       models.FarFuture,
		LinkedReviews:       []models.LinkedReview{},
		Warnings:            []string{},
		Errors:              []string{},
	}

	if m := raw.Milestone; m != nil {
		bp.MilestoneName = m.Name
		bp.MilestoneLink = m.WebLink
		if m.DateTargeted != nil {
			bp.MilestoneDate = *m.DateTargeted
		}
	}

	for _, src := range ownerChain {
		p := src.pick(&raw)
		if p == nil {
			continue
		}
		bp.OwnerName = p.Name
		bp.OwnerDisplay = DisplayName(p)
		if src.tentative {
			bp.OwnerDisplay = models.TentativeOpen + bp.OwnerDisplay + models.TentativeClose
		}
		break
	}

	return bp, nil
}

// DisplayName returns the person's display name, or the account name when the
// display name is unusable (empty or not valid UTF-8).
func DisplayName(p *models.Person) string {
	if p == nil {
		return ""
	}
	display := strings.TrimSpace(p.DisplayName)
	if display == "" || !utf8.ValidString(display) {
		return p.Name
	}
	return display
}
