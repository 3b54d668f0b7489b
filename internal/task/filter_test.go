package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func mk(id, title string, p Priority, done bool, minutes int) Task {
	at := base.Add(time.Duration(minutes) * time.Minute)
	return Task{ID: id, Title: title, Priority: p, Completed: done, CreatedAt: at, UpdatedAt: at}
}

func ids(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterAndSort_PriorityScenario(t *testing.T) {
	tasks := []Task{
		mk("A", "A", PriorityLow, false, 1),
		mk("B", "B", PriorityHigh, false, 2),
	}
	f := Filters{Status: StatusAll, Priority: PriorityAll, SortBy: SortByPriority, SortOrder: SortDesc}

	assert.Equal(t, []string{"B", "A"}, ids(FilterAndSort(tasks, f)))

	f.SortOrder = SortAsc
	assert.Equal(t, []string{"A", "B"}, ids(FilterAndSort(tasks, f)))
}

func TestFilterAndSort_DefaultIsNewestFirst(t *testing.T) {
	tasks := []Task{
		mk("old", "x", PriorityLow, false, 1),
		mk("mid", "y", PriorityLow, false, 5),
		mk("new", "z", PriorityLow, false, 9),
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids(FilterAndSort(tasks, DefaultFilters())))

	f := DefaultFilters()
	f.SortOrder = SortAsc
	assert.Equal(t, []string{"old", "mid", "new"}, ids(FilterAndSort(tasks, f)))
}

func TestFilterAndSort_Name(t *testing.T) {
	tasks := []Task{
		mk("1", "banana", PriorityLow, false, 1),
		mk("2", "Apple", PriorityLow, false, 2),
		mk("3", "cherry", PriorityLow, false, 3),
	}
	f := Filters{Status: StatusAll, Priority: PriorityAll, SortBy: SortByName, SortOrder: SortAsc}
	assert.Equal(t, []string{"2", "1", "3"}, ids(FilterAndSort(tasks, f)))

	f.SortOrder = SortDesc
	assert.Equal(t, []string{"3", "1", "2"}, ids(FilterAndSort(tasks, f)))
}

func TestFilterAndSort_Filters(t *testing.T) {
	tasks := []Task{
		mk("1", "a", PriorityLow, true, 1),
		mk("2", "b", PriorityHigh, false, 2),
		mk("3", "c", PriorityHigh, true, 3),
		mk("4", "d", PriorityMedium, false, 4),
	}

	tests := []struct {
		name   string
		status StatusFilter
		prio   PriorityFilter
		want   []string
	}{
		{"all", StatusAll, PriorityAll, []string{"4", "3", "2", "1"}},
		{"pending", StatusPending, PriorityAll, []string{"4", "2"}},
		{"completed", StatusCompleted, PriorityAll, []string{"3", "1"}},
		{"high", StatusAll, PriorityFilter(PriorityHigh), []string{"3", "2"}},
		{"completed high", StatusCompleted, PriorityFilter(PriorityHigh), []string{"3"}},
		{"pending low", StatusPending, PriorityFilter(PriorityLow), []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := DefaultFilters()
			f.Status = tc.status
			f.Priority = tc.prio
			assert.Equal(t, tc.want, ids(FilterAndSort(tasks, f)))
		})
	}
}

func TestFilterAndSort_StableOnTies(t *testing.T) {
	tasks := []Task{
		mk("h1", "a", PriorityHigh, false, 1),
		mk("l1", "b", PriorityLow, false, 1),
		mk("h2", "c", PriorityHigh, false, 1),
		mk("l2", "d", PriorityLow, false, 1),
		mk("h3", "e", PriorityHigh, false, 1),
	}
	f := Filters{Status: StatusAll, Priority: PriorityAll, SortBy: SortByPriority, SortOrder: SortDesc}
	assert.Equal(t, []string{"h1", "h2", "h3", "l1", "l2"}, ids(FilterAndSort(tasks, f)))

	f.SortOrder = SortAsc
	assert.Equal(t, []string{"l1", "l2", "h1", "h2", "h3"}, ids(FilterAndSort(tasks, f)))

	// equal timestamps keep input order
	f.SortBy = SortByCreatedAt
	assert.Equal(t, []string{"h1", "l1", "h2", "l2", "h3"}, ids(FilterAndSort(tasks, f)))
}

func TestFilterAndSort_Idempotent(t *testing.T) {
	tasks := []Task{
		mk("1", "delta", PriorityMedium, false, 4),
		mk("2", "alpha", PriorityHigh, true, 2),
		mk("3", "charlie", PriorityMedium, false, 4),
		mk("4", "bravo", PriorityLow, false, 1),
	}
	for _, by := range []SortField{SortByName, SortByPriority, SortByCreatedAt} {
		for _, order := range []SortOrder{SortAsc, SortDesc} {
			f := Filters{Status: StatusAll, Priority: PriorityAll, SortBy: by, SortOrder: order}
			once := FilterAndSort(tasks, f)
			twice := FilterAndSort(once, f)
			assert.Equal(t, ids(once), ids(twice), "%s/%s", by, order)
		}
	}
}

func TestFilterAndSort_DoesNotMutateInput(t *testing.T) {
	tasks := []Task{
		mk("1", "a", PriorityLow, false, 1),
		mk("2", "b", PriorityHigh, false, 2),
	}
	FilterAndSort(tasks, DefaultFilters())
	assert.Equal(t, []string{"1", "2"}, ids(tasks))
}

func TestFilterAndSort_UnknownValuesAreIgnored(t *testing.T) {
	tasks := []Task{
		mk("1", "a", PriorityLow, true, 1),
		mk("2", "b", PriorityHigh, false, 2),
	}
	f := Filters{Status: "archived", Priority: "urgent", SortBy: "due", SortOrder: SortDesc}
	assert.Equal(t, []string{"1", "2"}, ids(FilterAndSort(tasks, f)))
}

func TestParseFilters(t *testing.T) {
	f, err := ParseFilters("Pending", "HIGH", "title", "asc")
	require.NoError(t, err)
	assert.Equal(t, Filters{Status: StatusPending, Priority: "high", SortBy: SortByName, SortOrder: SortAsc}, f)

	f, err = ParseFilters("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultFilters(), f)

	_, err = ParseFilters("done", "", "", "")
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = ParseFilters("", "urgent", "", "")
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = ParseFilters("", "", "due", "")
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = ParseFilters("", "", "", "up")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestFiltersMerge(t *testing.T) {
	status := StatusCompleted
	order := SortAsc
	got := DefaultFilters().Merge(FilterPatch{Status: &status, SortOrder: &order})

	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, PriorityAll, got.Priority)
	assert.Equal(t, SortByCreatedAt, got.SortBy)
	assert.Equal(t, SortAsc, got.SortOrder)
}
