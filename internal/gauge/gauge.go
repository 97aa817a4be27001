// Package gauge maps a release cycle schedule onto day offsets so the current
// date can be placed in a green, yellow or red zone.
package gauge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/relstatus/internal/models"
)

var (
	// ErrInsufficientSchedule is returned for schedules with too few phases.
	ErrInsufficientSchedule = errors.New("insufficient schedule")
	// ErrInvalidSchedule is returned for phases with a negative duration or a
	// label that cannot be written into the tick list.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Entry is one phase of the release cycle.
type Entry struct {
	Days  int    `json:"days" yaml:"days"`
	Label string `json:"label" yaml:"label"`
}

// Description is the computed gauge for one schedule and date.
type Description struct {
	Ticks           string `json:"ticks"`
	End             int    `json:"end"`
	RedThreshold    int    `json:"red"`
	YellowThreshold int    `json:"yellow"`
	GreenThreshold  int    `json:"green"`
	Progress        int    `json:"progress"`
}

// Zone names the part of the gauge the progress falls into.
func (d Description) Zone() string {
	switch {
	case d.Progress >= d.End:
		return "released"
	case d.Progress >= d.RedThreshold:
		return "red"
	case d.Progress >= d.YellowThreshold:
		return "yellow"
	case d.Progress >= d.GreenThreshold:
		return "green"
	default:
		return "early"
	}
}

// TickReserved are the characters that delimit labels in Description.Ticks.
const TickReserved = ",'"

// Compute builds the gauge for entries, placing today relative to release.
func Compute(entries []Entry, release, today time.Time) (Description, error) {
	if len(entries) < models.MinScheduleEntries {
		return Description{}, fmt.Errorf("%w: need at least %d milestones, got %d",
			ErrInsufficientSchedule, models.MinScheduleEntries, len(entries))
	}

	var ticks strings.Builder
	end := models.GaugeOrigin
	for _, e := range entries {
		if e.Days < 0 {
			return Description{}, fmt.Errorf("%w: milestone %q has negative duration %d", ErrInvalidSchedule, e.Label, e.Days)
		}
		if strings.ContainsAny(e.Label, TickReserved) {
			return Description{}, fmt.Errorf("%w: milestone label %q contains one of %s", ErrInvalidSchedule, e.Label, TickReserved)
		}
		ticks.WriteString(strings.Repeat("'',", e.Days))
		fmt.Fprintf(&ticks, "'%s',", e.Label)
		end += span(e)
	}

	n := len(entries)
	red := end - span(entries[n-1])
	yellow := red - span(entries[n-2])
	green := yellow - span(entries[n-3])

	return Description{
		Ticks:           ticks.String(),
		End:             end,
		RedThreshold:    red,
		YellowThreshold: yellow,
		GreenThreshold:  green,
		Progress:        end - DaysBetween(today, release),
	}, nil
}

// span is the number of gauge days a phase occupies, its label included.
func span(e Entry) int {
	return e.Days + 1
}

// DaysBetween returns the number of calendar days from a to b, ignoring the
// time of day.
func DaysBetween(a, b time.Time) int {
	return int(civilDate(b).Sub(civilDate(a)).Hours() / 24)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
