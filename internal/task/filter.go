package task

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var ErrInvalidFilter = errors.New("invalid filter")

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

type PriorityFilter string

const PriorityAll PriorityFilter = "all"

type SortField string

const (
	SortByName      SortField = "name"
	SortByPriority  SortField = "priority"
	SortByCreatedAt SortField = "createdAt"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filters select and order a view over the task collection. They are never persisted.
type Filters struct {
	Status    StatusFilter
	Priority  PriorityFilter
	SortBy    SortField
	SortOrder SortOrder
}

// DefaultFilters shows every task, newest first.
func DefaultFilters() Filters {
	return Filters{
		Status:    StatusAll,
		Priority:  PriorityAll,
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
	}
}

// FilterPatch is a partial filter update; nil fields keep their current value.
type FilterPatch struct {
	Status    *StatusFilter
	Priority  *PriorityFilter
	SortBy    *SortField
	SortOrder *SortOrder
}

// Merge applies p on top of f.
func (f Filters) Merge(p FilterPatch) Filters {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.Priority != nil {
		f.Priority = *p.Priority
	}
	if p.SortBy != nil {
		f.SortBy = *p.SortBy
	}
	if p.SortOrder != nil {
		f.SortOrder = *p.SortOrder
	}
	return f
}

func (f Filters) Validate() error {
	switch f.Status {
	case StatusAll, StatusPending, StatusCompleted:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidFilter, f.Status)
	}
	if f.Priority != PriorityAll && !Priority(f.Priority).Valid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidFilter, f.Priority)
	}
	switch f.SortBy {
	case SortByName, SortByPriority, SortByCreatedAt:
	default:
		return fmt.Errorf("%w: sort field %q", ErrInvalidFilter, f.SortBy)
	}
	switch f.SortOrder {
	case SortAsc, SortDesc:
	default:
		return fmt.Errorf("%w: sort order %q", ErrInvalidFilter, f.SortOrder)
	}
	return nil
}

// ParseFilters builds Filters from their textual names. Blank values take the default.
func ParseFilters(status, priority, sortBy, sortOrder string) (Filters, error) {
	f := DefaultFilters()
	if v := strings.TrimSpace(status); v != "" {
		f.Status = StatusFilter(strings.ToLower(v))
	}
	if v := strings.TrimSpace(priority); v != "" {
		f.Priority = PriorityFilter(strings.ToLower(v))
	}
	if v := strings.TrimSpace(sortBy); v != "" {
		f.SortBy = parseSortField(v)
	}
	if v := strings.TrimSpace(sortOrder); v != "" {
		f.SortOrder = SortOrder(strings.ToLower(v))
	}
	if err := f.Validate(); err != nil {
		return DefaultFilters(), err
	}
	return f, nil
}

func parseSortField(v string) SortField {
	switch strings.ToLower(v) {
	case "name", "title":
		return SortByName
	case "priority":
		return SortByPriority
	case "createdat", "created_at", "created":
		return SortByCreatedAt
	default:
		return SortField(v)
	}
}

// FilterAndSort returns a new slice holding the tasks selected by f in the order f asks for.
// The sort is stable. Unrecognized filter values select everything and unrecognized sort
// fields keep the input order.
func FilterAndSort(tasks []Task, f Filters) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if matchStatus(t, f.Status) && matchPriority(t, f.Priority) {
			out = append(out, t)
		}
	}

	less := comparator(f.SortBy)
	if less == nil {
		return out
	}
	if f.SortOrder == SortAsc {
		slices.SortStableFunc(out, func(a, b Task) int { return -less(a, b) })
	} else {
		slices.SortStableFunc(out, less)
	}
	return out
}

func matchStatus(t Task, s StatusFilter) bool {
	switch s {
	case StatusPending:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

func matchPriority(t Task, p PriorityFilter) bool {
	if p == PriorityAll || !Priority(p).Valid() {
		return true
	}
	return t.Priority == Priority(p)
}

// comparator returns the descending-order comparison for a sort field.
func comparator(field SortField) func(a, b Task) int {
	switch field {
	case SortByName:
		// Collator buffers are not safe for concurrent use; one per sort.
		c := collate.New(language.Und, collate.IgnoreCase)
		return func(a, b Task) int {
			return c.CompareString(b.Title, a.Title)
		}
	case SortByPriority:
		return func(a, b Task) int {
			return cmp.Compare(b.Priority.Rank(), a.Priority.Rank())
		}
	case SortByCreatedAt:
		return func(a, b Task) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	default:
		return nil
	}
}
