package gerrit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/relstatus/internal/models"
)

// scriptedQuerier replays one page per call and records requests.
type scriptedQuerier struct {
	pages    [][]Row
	err      error
	requests []Request
}

func (q *scriptedQuerier) Query(_ context.Context, req Request) ([]Row, error) {
	q.requests = append(q.requests, req)
	if q.err != nil {
		return nil, q.err
	}
	if len(q.requests) > len(q.pages) {
		return nil, errors.New("unexpected extra page request")
	}
	return q.pages[len(q.requests)-1], nil
}

func ch(n int, key string) Row {
	return Row{Change: &models.RawChange{Number: n, SortKey: key, Project: "openstack/nova"}}
}

func stats(n int) Row { return Row{RowCount: n} }

func numbers(changes []models.RawChange) []int {
	var out []int
	for _, c := range changes {
		out = append(out, c.Number)
	}
	return out
}

func TestQuery(t *testing.T) {
	f := NewFetcher(nil, Config{Branch: "master", ProjectPrefix: "openstack"})
	assert.Equal(t,
		[]string{"branch:master", "AND", "NOT", "age:2mon", "AND", "project:openstack/nova", "AND", "status:merged"},
		f.Query("nova", FilterMerged))

	f = NewFetcher(nil, Config{MaxAge: "1w"})
	assert.Equal(t,
		[]string{"NOT", "age:1w", "AND", "project:glance", "AND", "status:open"},
		f.Query("glance", FilterUnderReview))
}

func TestFetch_PagesUntilZeroCount(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{
		{ch(1, "a"), ch(2, "b"), stats(2)},
		{ch(3, "c"), stats(1)},
		{stats(0)},
	}}
	f := NewFetcher(q, Config{})

	set, err := f.Fetch(context.Background(), []string{"nova"}, FilterMerged)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, numbers(set["nova"]))

	require.Len(t, q.requests, 3)
	assert.Equal(t, "", q.requests[0].Resume)
	assert.Equal(t, "b", q.requests[1].Resume)
	assert.Equal(t, "c", q.requests[2].Resume)
}

func TestFetch_StopsOnRepeatedRecord(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{
		{ch(1, "a"), ch(2, "b"), stats(2)},
		{ch(2, "b"), ch(3, "c"), stats(2)},
	}}
	f := NewFetcher(q, Config{})

	set, err := f.Fetch(context.Background(), []string{"nova"}, FilterMerged)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, numbers(set["nova"]))
	assert.Len(t, q.requests, 2)
}

func TestFetch_SameNumberWithNewSortKeyIsSkipped(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{
		{ch(7, "a"), ch(8, "b"), stats(2)},
		{ch(7, "c"), stats(1)},
		{stats(0)},
	}}
	f := NewFetcher(q, Config{})

	set, err := f.Fetch(context.Background(), []string{"nova"}, FilterMerged)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, numbers(set["nova"]))
	require.Len(t, q.requests, 3)
	assert.Equal(t, "c", q.requests[2].Resume)
}

func TestFetch_StopsOnEmptyPage(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{
		{ch(1, "a"), stats(1)},
		{},
	}}
	f := NewFetcher(q, Config{})

	set, err := f.Fetch(context.Background(), []string{"nova"}, FilterUnderReview)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, numbers(set["nova"]))
}

func TestFetch_EmptyProject(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{{stats(0)}}}
	f := NewFetcher(q, Config{})

	set, err := f.Fetch(context.Background(), []string{"swift"}, FilterMerged)
	require.NoError(t, err)
	assert.Contains(t, set, "swift")
	assert.Empty(t, set["swift"])
}

func TestFetch_ErrorIsFatal(t *testing.T) {
	q := &scriptedQuerier{err: errors.New("connection refused")}
	f := NewFetcher(q, Config{})

	_, err := f.Fetch(context.Background(), []string{"nova"}, FilterMerged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nova")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetchIndex(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{
		{ch(10, "x"), stats(1)},
		{stats(0)},
		{ch(20, "y"), stats(1)},
		{stats(0)},
	}}
	f := NewFetcher(q, Config{})

	idx, err := f.FetchIndex(context.Background(), []string{"nova"})
	require.NoError(t, err)
	assert.Equal(t, []int{10}, numbers(idx.Merged["nova"]))
	assert.Equal(t, []int{20}, numbers(idx.UnderReview["nova"]))
	assert.Equal(t, "status:merged", q.requests[0].Query[len(q.requests[0].Query)-1])
	assert.Equal(t, "status:open", q.requests[2].Query[len(q.requests[2].Query)-1])
}

func TestChanges_EarlyBreak(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{
		{ch(1, "a"), ch(2, "b"), ch(3, "c"), stats(3)},
	}}
	f := NewFetcher(q, Config{})

	var got []int
	for c, err := range f.Changes(context.Background(), "nova", FilterMerged) {
		require.NoError(t, err)
		got = append(got, c.Number)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, got)
	assert.Len(t, q.requests, 1)
}

func TestChanges_LogsRepeat(t *testing.T) {
	q := &scriptedQuerier{pages: [][]Row{
		{ch(1, "a"), stats(1)},
		{ch(1, "a"), stats(1)},
	}}
	f := NewFetcher(q, Config{})
	var logs []string
	f.Logf = func(format string, a ...any) { logs = append(logs, format) }

	for _, err := range f.Changes(context.Background(), "nova", FilterMerged) {
		require.NoError(t, err)
	}
	require.NotEmpty(t, logs)
	assert.True(t, strings.Contains(logs[len(logs)-1], "repeated"))
}
