package review

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/relstatus/internal/models"
)

func change(n int, topic string) models.RawChange {
	return models.RawChange{
		Number:  n,
		URL:     "https://review.openstack.org/" + strconv.Itoa(n),
		Subject: "change " + strconv.Itoa(n),
		Project: "openstack/nova",
		Topic:   topic,
	}
}

func TestReferences(t *testing.T) {
	c := NewCorrelator("review.openstack.org")

	wb := `Gerrit topic: https://review.openstack.org/#q,topic:bp/foo,n,z

Addressed by: https://review.openstack.org/12345
    Add the API extension
Addressed by: https://review.openstack.org/23456
Addressed by: https://review.example.org/99999`

	assert.Equal(t, []int{12345, 23456}, c.References(wb))
	assert.Nil(t, c.References(""))
}

func TestReferences_HostIsLiteral(t *testing.T) {
	c := NewCorrelator("review.openstack.org")
	assert.Nil(t, c.References("Addressed by: https://reviewXopenstackXorg/12345"))
}

func TestCorrelate_WhiteboardReferenceMerged(t *testing.T) {
	c := NewCorrelator("")
	idx := models.ReviewIndex{
		Merged: models.ChangeSet{"nova": {change(12345, "")}},
	}

	links := c.Correlate("some-bp", "nova", "Addressed by: https://review.openstack.org/12345", idx)
	require.Len(t, links, 1)
	assert.Equal(t, 12345, links[0].Number)
	assert.Equal(t, models.ReviewTagMerged, links[0].Tag)
	assert.Equal(t, "https://review.openstack.org/12345", links[0].URL)
	assert.Equal(t, "change 12345", links[0].Subject)
}

func TestCorrelate_TopicAndOrdering(t *testing.T) {
	c := NewCorrelator("")
	idx := models.ReviewIndex{
		Merged: models.ChangeSet{"nova": {
			change(30000, "bp/live-migration"),
			change(10000, "other"),
		}},
		UnderReview: models.ChangeSet{"nova": {
			change(20000, "live-migration"),
			change(25000, "bp/live-migration-v2"),
			change(5000, ""),
		}},
	}

	links := c.Correlate("live-migration", "nova", "Addressed by: https://review.openstack.org/5000", idx)
	require.Len(t, links, 3)
	assert.Equal(t, 5000, links[0].Number)
	assert.Equal(t, models.ReviewTagNeedsReview, links[0].Tag)
	assert.Equal(t, 20000, links[1].Number)
	assert.Equal(t, models.ReviewTagNeedsReview, links[1].Tag)
	assert.Equal(t, 30000, links[2].Number)
	assert.Equal(t, models.ReviewTagMerged, links[2].Tag)
}

func TestCorrelate_MatchedByBothRulesCountsOnce(t *testing.T) {
	c := NewCorrelator("")
	idx := models.ReviewIndex{
		Merged: models.ChangeSet{"nova": {change(12345, "bp/foo")}},
	}

	links := c.Correlate("foo", "nova", "Addressed by: https://review.openstack.org/12345", idx)
	assert.Len(t, links, 1)
}

func TestCorrelate_SameChangeInBothSetsIsMerged(t *testing.T) {
	c := NewCorrelator("")
	idx := models.ReviewIndex{
		Merged:      models.ChangeSet{"nova": {change(42, "bp/foo")}},
		UnderReview: models.ChangeSet{"nova": {change(42, "bp/foo")}},
	}

	links := c.Correlate("foo", "nova", "", idx)
	require.Len(t, links, 1)
	assert.Equal(t, models.ReviewTagMerged, links[0].Tag)
}

func TestCorrelate_MissingProject(t *testing.T) {
	c := NewCorrelator("")
	idx := models.ReviewIndex{
		Merged: models.ChangeSet{"nova": {change(1, "bp/foo")}},
	}

	links := c.Correlate("foo", "glance", "Addressed by: https://review.openstack.org/1", idx)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestCorrelate_Idempotent(t *testing.T) {
	c := NewCorrelator("")
	idx := models.ReviewIndex{
		Merged:      models.ChangeSet{"nova": {change(3, "bp/foo"), change(1, "x")}},
		UnderReview: models.ChangeSet{"nova": {change(2, "foo")}},
	}
	wb := "Addressed by: https://review.openstack.org/1"

	first := c.Correlate("foo", "nova", wb, idx)
	second := c.Correlate("foo", "nova", wb, idx)
	assert.Equal(t, first, second)
}

func TestTopicMatches(t *testing.T) {
	assert.True(t, TopicMatches("bp/foo", "foo"))
	assert.True(t, TopicMatches("foo", "foo"))
	assert.True(t, TopicMatches("a/b/foo", "foo"))
	assert.False(t, TopicMatches("foo/bar", "foo"))
	assert.False(t, TopicMatches("", "foo"))
	assert.False(t, TopicMatches("bp/", ""))
}
