// Package review links code-review changes to the blueprints they implement.
package review

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/joescharf/relstatus/internal/models"
)

// Correlator matches changes to blueprints by whiteboard references and by
// topic naming convention.
type Correlator struct {
	addressedBy *regexp.Regexp
}

// NewCorrelator returns a Correlator that recognizes review links on host.
func NewCorrelator(host string) *Correlator {
	if host == "" {
		host = models.DefaultReviewHost
	}
	return &Correlator{
		addressedBy: regexp.MustCompile(`Addressed by: https://` + regexp.QuoteMeta(host) + `/(\d+)`),
	}
}

// References extracts the change numbers a whiteboard points at.
func (c *Correlator) References(whiteboard string) []int {
	if whiteboard == "" {
		return nil
	}
	var refs []int
	for _, m := range c.addressedBy.FindAllStringSubmatch(whiteboard, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue // too many digits to be a change number
		}
		refs = append(refs, n)
	}
	return refs
}

// Correlate returns the changes of project linked to the blueprint, ordered by
// change number. A change found in both sets is reported once, as merged.
func (c *Correlator) Correlate(blueprint, project, whiteboard string, idx models.ReviewIndex) []models.LinkedReview {
	refs := c.References(whiteboard)

	found := make(map[int]models.LinkedReview)
	sets := []struct {
		changes models.ChangeSet
		tag     models.ReviewTag
	}{
		{idx.Merged, models.ReviewTagMerged},
		{idx.UnderReview, models.ReviewTagNeedsReview},
	}
	for _, set := range sets {
		for _, ch := range set.changes[project] {
			if _, seen := found[ch.Number]; seen {
				continue
			}
			if slices.Contains(refs, ch.Number) || TopicMatches(ch.Topic, blueprint) {
				found[ch.Number] = models.LinkedReview{
					Number:  ch.Number,
					URL:     ch.URL,
					Subject: ch.Subject,
					Tag:     set.tag,
				}
			}
		}
	}

	links := make([]models.LinkedReview, 0, len(found))
	for _, l := range found {
		links = append(links, l)
	}
	slices.SortFunc(links, func(a, b models.LinkedReview) int { return a.Number - b.Number })
	return links
}

// TopicMatches reports whether the last path segment of topic names the
// blueprint, e.g. "bp/live-migration" for "live-migration".
func TopicMatches(topic, blueprint string) bool {
	if topic == "" || blueprint == "" {
		return false
	}
	return topic[strings.LastIndex(topic, "/")+1:] == blueprint
}
