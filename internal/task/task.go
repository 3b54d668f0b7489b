// Package task holds the task domain types and the pure functions that derive
// filtered views and statistics from a task collection.
package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength is the longest title, in characters, a task may carry.
const MaxTitleLength = 200

var (
	ErrEmptyTitle      = errors.New("title cannot be empty")
	ErrTitleTooLong    = fmt.Errorf("title longer than %d characters", MaxTitleLength)
	ErrInvalidPriority = errors.New("invalid priority")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest rank.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// ParsePriority accepts a priority name, ignoring case and surrounding space.
func ParsePriority(v string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, v)
	}
	return p, nil
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities: high(3) > medium(2) > low(1). Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Raise returns the next higher priority, staying at high.
func (p Priority) Raise() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	default:
		return PriorityHigh
	}
}

// Lower returns the next lower priority, staying at low.
func (p Priority) Lower() Priority {
	switch p {
	case PriorityHigh:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type Task struct {
	ID        string
	Title     string
	Completed bool
	Priority  Priority
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Draft carries the caller-supplied fields of a task that is about to be created.
type Draft struct {
	Title     string
	Completed bool
	Priority  Priority
}

// Patch is a partial update. Nil fields are left out of the merge.
type Patch struct {
	Title     *string
	Completed *bool
	Priority  *Priority
}

// Empty reports whether the patch carries no fields at all.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Completed == nil && p.Priority == nil
}

// Apply merges the patch onto t and returns the result. Timestamps are untouched.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	return t
}

// NormalizeTitle trims v and checks it against the title rules.
func NormalizeTitle(v string) (string, error) {
	title := strings.TrimSpace(v)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
