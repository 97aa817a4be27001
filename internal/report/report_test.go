package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/relstatus/internal/gauge"
	"github.com/joescharf/relstatus/internal/models"
)

type fakeBlueprints struct {
	byProject map[string][]models.RawBlueprint
	err       error
}

func (f *fakeBlueprints) ValidSpecifications(_ context.Context, project, _ string) ([]models.RawBlueprint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byProject[project], nil
}

type fakeReviews struct {
	idx models.ReviewIndex
	err error
}

func (f *fakeReviews) FetchIndex(context.Context, []string) (models.ReviewIndex, error) {
	return f.idx, f.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var schedule = []gauge.Entry{{Days: 2, Label: "M1"}, {Days: 2, Label: "M2"}, {Days: 2, Label: "M3"}}

func person(name string) *models.Person {
	return &models.Person{Name: name, DisplayName: name}
}

func fixture() (*fakeBlueprints, *fakeReviews) {
	kilo2 := &models.Milestone{Name: "kilo-2", DateTargeted: ptr(date(2015, 1, 22))}
	bps := &fakeBlueprints{byProject: map[string][]models.RawBlueprint{
		"nova": {
			{
				Name: "cells-v2", Project: "nova", Priority: "High",
				Implementation: "Needs Code Review", Assignee: person("alice"), Milestone: kilo2,
				Whiteboard: "Addressed by: https://review.openstack.org/12345",
			},
			{
				Name: "done-thing", Project: "nova", Priority: "Low",
				Implementation: "Implemented", Assignee: person("bob"),
				Whiteboard: "Addressed by: https://review.openstack.org/12345",
			},
			{Name: "orphan", Project: "nova", Priority: "High", Implementation: "Not started"},
		},
		"glance": {
			{Name: "essential-work", Project: "glance", Priority: "Essential", Implementation: "Started", Drafter: person("carol")},
		},
	}}
	reviews := &fakeReviews{idx: models.ReviewIndex{
		Merged: models.ChangeSet{"nova": {{Number: 12345, URL: "https://review.openstack.org/12345"}}},
	}}
	return bps, reviews
}

func ptr[T any](v T) *T { return &v }

func newTestBuilder(bps BlueprintSource, reviews ReviewSource) *Builder {
	b := NewBuilder(bps, reviews)
	b.Now = func() time.Time { return date(2015, 4, 1) }
	return b
}

func TestBuild(t *testing.T) {
	bps, reviews := fixture()
	b := newTestBuilder(bps, reviews)

	r, err := b.Build(context.Background(), Options{
		Series:      "kilo",
		Products:    []string{"nova", "glance"},
		Schedule:    schedule,
		ReleaseDate: date(2015, 4, 3),
	})
	require.NoError(t, err)

	_, err = ulid.Parse(r.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "kilo", r.Series)
	assert.Equal(t, 2, r.Gauge.End)
	assert.Equal(t, 0, r.Gauge.Progress) // two days to go

	require.Len(t, r.Active, 3)
	require.Len(t, r.Completed, 1)

	// Essential first, then High sorted by milestone date: dated before unscheduled
	assert.Equal(t, []string{"essential-work", "cells-v2", "orphan"},
		[]string{r.Active[0].Name, r.Active[1].Name, r.Active[2].Name})

	cells := r.Active[1]
	require.Len(t, cells.LinkedReviews, 1)
	assert.Equal(t, models.ReviewTagMerged, cells.LinkedReviews[0].Tag)
	assert.Empty(t, cells.Warnings)
	assert.Empty(t, cells.Errors)

	assert.Equal(t, []string{"no assignee or drafter"}, r.Active[2].Errors)
	assert.Equal(t, []string{"no assignee yet"}, r.Active[0].Warnings)

	done := r.Completed[0]
	assert.Empty(t, done.LinkedReviews, "completed blueprints are not correlated")
	assert.Empty(t, done.Warnings)

	assert.Equal(t, 3, r.Health.Total)
	assert.Equal(t, 33, r.Health.Score)
}

func TestBuild_ProgressUsesCallerClock(t *testing.T) {
	bps, reviews := fixture()
	b := newTestBuilder(bps, reviews)
	// 23:00 on Apr 1 in UTC-7 is already Apr 2 in UTC
	late := time.Date(2015, 4, 1, 23, 0, 0, 0, time.FixedZone("PDT", -7*3600))
	b.Now = func() time.Time { return late }

	r, err := b.Build(context.Background(), Options{
		Series:      "kilo",
		Products:    []string{"nova"},
		Schedule:    schedule,
		ReleaseDate: date(2015, 4, 3),
	})
	require.NoError(t, err)

	want, err := gauge.Compute(schedule, date(2015, 4, 3), late)
	require.NoError(t, err)
	assert.Equal(t, want.Progress, r.Gauge.Progress)
	assert.Equal(t, 0, r.Gauge.Progress)
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())
}

func TestBuild_Errors(t *testing.T) {
	opts := Options{Series: "kilo", Products: []string{"nova"}, Schedule: schedule, ReleaseDate: date(2015, 4, 3)}

	t.Run("short schedule", func(t *testing.T) {
		bps, reviews := fixture()
		o := opts
		o.Schedule = schedule[:2]
		_, err := newTestBuilder(bps, reviews).Build(context.Background(), o)
		assert.ErrorIs(t, err, gauge.ErrInsufficientSchedule)
	})

	t.Run("blueprint fetch", func(t *testing.T) {
		_, reviews := fixture()
		_, err := newTestBuilder(&fakeBlueprints{err: errors.New("503")}, reviews).Build(context.Background(), opts)
		assert.ErrorContains(t, err, "fetch blueprints for nova: 503")
	})

	t.Run("review fetch", func(t *testing.T) {
		bps, _ := fixture()
		_, err := newTestBuilder(bps, &fakeReviews{err: errors.New("ssh down")}).Build(context.Background(), opts)
		assert.ErrorContains(t, err, "ssh down")
	})

	t.Run("unknown label", func(t *testing.T) {
		bps := &fakeBlueprints{byProject: map[string][]models.RawBlueprint{
			"nova": {{Name: "x", Project: "nova", Priority: "Urgent", Implementation: "Started"}},
		}}
		_, err := newTestBuilder(bps, &fakeReviews{}).Build(context.Background(), opts)
		assert.ErrorIs(t, err, models.ErrUnknownEnumValue)
	})
}

func TestAssemble_Empty(t *testing.T) {
	b := newTestBuilder(nil, nil)
	active, completed, err := b.Assemble(nil, models.ReviewIndex{})
	require.NoError(t, err)
	assert.NotNil(t, active)
	assert.NotNil(t, completed)
	assert.Empty(t, active)
}

func TestFind(t *testing.T) {
	bps, reviews := fixture()
	r, err := newTestBuilder(bps, reviews).Build(context.Background(), Options{
		Series: "kilo", Products: []string{"nova"}, Schedule: schedule, ReleaseDate: date(2015, 4, 3),
	})
	require.NoError(t, err)

	bp, ok := r.Find("done-thing")
	require.True(t, ok)
	assert.True(t, bp.Completed())

	_, ok = r.Find("nope")
	assert.False(t, ok)
}

func sampleReport(t *testing.T) *Report {
	t.Helper()
	bps, reviews := fixture()
	r, err := newTestBuilder(bps, reviews).Build(context.Background(), Options{
		Series: "kilo", Products: []string{"nova", "glance"}, Schedule: schedule, ReleaseDate: date(2015, 4, 3),
	})
	require.NoError(t, err)
	return r
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), "json"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "kilo", decoded["series"])
	assert.Len(t, decoded["active"], 3)
}

func TestRender_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), "csv"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "cells-v2", records[2][2])
	assert.Equal(t, "2015-01-22", records[2][6])
	assert.Equal(t, "12345:MERGED", records[2][8])
	assert.Equal(t, "", records[3][6], "unscheduled blueprints have no date")
	assert.Equal(t, "completed", records[4][0])
}

func TestRender_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(t), "markdown"))

	out := buf.String()
	assert.Contains(t, out, "# kilo release status")
	assert.Contains(t, out, "## Active (3, health 33)")
	assert.Contains(t, out, "[~~12345~~](https://review.openstack.org/12345)")
	assert.Contains(t, out, "<i>carol</i>")
}

func TestRender_HTML(t *testing.T) {
	r := sampleReport(t)
	r.Active[0].OwnerDisplay = models.TentativeOpen + "<script>x</script>" + models.TentativeClose

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, "html"))

	out := buf.String()
	assert.Contains(t, out, "<title>kilo release status</title>")
	assert.Contains(t, out, `class="merged"`)
	assert.Contains(t, out, "<i>&lt;script&gt;x&lt;/script&gt;</i>")
	assert.NotContains(t, out, "<script>x")
	assert.Contains(t, out, "<span>M1</span>")
	assert.Contains(t, out, r.RunID)
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, &Report{}, "pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestTickLabels(t *testing.T) {
	assert.Equal(t, []string{"M1", "M2"}, TickLabels("'','','M1','','M2',"))
	assert.Empty(t, TickLabels(""))

	entries := []gauge.Entry{{Days: 1, Label: "kilo-1 (Dec 18)"}, {Days: 0, Label: "<i>FF</i>"}, {Days: 2, Label: "RC1"}}
	g, err := gauge.Compute(entries, date(2015, 4, 30), date(2015, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"kilo-1 (Dec 18)", "<i>FF</i>", "RC1"}, TickLabels(g.Ticks))
}
