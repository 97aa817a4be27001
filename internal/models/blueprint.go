package models

import "time"

// Person is a planning-service account that can own a blueprint.
type Person struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	IsTeam      bool   `json:"is_team"`
}

// Milestone is the release milestone a blueprint is targeted to.
type Milestone struct {
	Name         string     `json:"name"`
	DateTargeted *time.Time `json:"date_targeted,omitempty"`
	WebLink      string     `json:"web_link"`
	IsActive     bool       `json:"is_active"`
}

// RawBlueprint is a blueprint as delivered by the planning service.
type RawBlueprint struct {
	Name           string     `json:"name"`
	Project        string     `json:"project"`
	Title          string     `json:"title,omitempty"`
	WebLink        string     `json:"web_link,omitempty"`
	Whiteboard     string     `json:"whiteboard"`
	Priority       string     `json:"priority"`
	Implementation string     `json:"implementation_status"`
	Milestone      *Milestone `json:"milestone,omitempty"`
	Assignee       *Person    `json:"assignee,omitempty"`
	Drafter        *Person    `json:"drafter,omitempty"`
}

// ReviewTag classifies a linked review by the index it was found in.
type ReviewTag string

const (
	ReviewTagMerged      ReviewTag = "MERGED"
	ReviewTagNeedsReview ReviewTag = "NEEDSREVIEW"
)

// LinkedReview is a change projected onto the blueprint it implements.
type LinkedReview struct {
	Number  int       `json:"number"`
	URL     string    `json:"url"`
	Subject string    `json:"subject"`
	Tag     ReviewTag `json:"tag"`
}

// EnrichedBlueprint is a normalized blueprint with its derived signals.
type EnrichedBlueprint struct {
	RawBlueprint

	PriorityIndex       int            `json:"priority_index"`
	ImplementationIndex int            `json:"implementation_index"`
	MilestoneName       string         `json:"milestone_name"`
	MilestoneDate       time.Time      `json:"milestone_date"`
	MilestoneLink       string         `json:"milestone_link"`
	OwnerName           string         `json:"owner_name"`
	OwnerDisplay        string         `json:"owner_display"`
	LinkedReviews       []LinkedReview `json:"linked_reviews"`
	Warnings            []string       `json:"warnings"`
	Errors              []string       `json:"errors"`
}

// HasAssignee reports whether the blueprint has an assignee.
func (b *EnrichedBlueprint) HasAssignee() bool { return b.Assignee != nil }

// HasDrafter reports whether the blueprint has a drafter.
func (b *EnrichedBlueprint) HasDrafter() bool { return b.Drafter != nil }

// Completed reports whether the blueprint belongs in the completed set.
func (b *EnrichedBlueprint) Completed() bool {
	return b.Implementation == ImplementationImplemented
}
