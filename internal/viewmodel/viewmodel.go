// Package viewmodel mediates between a front end and the task store. It keeps the
// session's task cache and filter state and derives sorted views and statistics.
//
// Reconciliation rule: Load replaces the cache wholesale; every successful
// mutation patches it incrementally with the store's result. A failed call
// leaves the cache as it was.
package viewmodel

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"taskpad/internal/task"
)

// Store is the persistence the view model drives.
type Store interface {
	GetAllTasks(ctx context.Context) ([]task.Task, error)
	AddTask(ctx context.Context, d task.Draft) (task.Task, error)
	UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type ViewModel struct {
	store Store
	log   *logrus.Entry

	// mu guards the fields below and is never held across a store call.
	mu      sync.RWMutex
	tasks   []task.Task
	filters task.Filters
	loading bool
	errMsg  string
}

func New(store Store, log *logrus.Entry) *ViewModel {
	return &ViewModel{
		store:   store,
		log:     log.WithField("component", "viewmodel"),
		filters: task.DefaultFilters(),
	}
}

// Load replaces the cache with the store's contents. On failure the previous
// cache is kept and the error is recorded, never returned.
func (vm *ViewModel) Load(ctx context.Context) {
	vm.mu.Lock()
	vm.loading = true
	vm.errMsg = ""
	vm.mu.Unlock()

	tasks, err := vm.store.GetAllTasks(ctx)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.loading = false
	if err != nil {
		vm.errMsg = message("load tasks", err)
		vm.log.WithError(err).Warn("load failed")
		return
	}
	vm.tasks = slices.Clone(tasks)
}

// Add trims and validates title, stores the task and appends it to the cache.
func (vm *ViewModel) Add(ctx context.Context, title string, p task.Priority) (task.Task, error) {
	vm.clearError()
	clean, err := task.NormalizeTitle(title)
	if err != nil {
		return task.Task{}, vm.fail("add task", err)
	}
	if !p.Valid() {
		return task.Task{}, vm.fail("add task", fmt.Errorf("%w: %q", task.ErrInvalidPriority, p))
	}

	added, err := vm.store.AddTask(ctx, task.Draft{Title: clean, Priority: p})
	if err != nil {
		return task.Task{}, vm.fail("add task", err)
	}

	vm.mu.Lock()
	vm.tasks = append(vm.tasks, added)
	vm.mu.Unlock()
	return added, nil
}

// Update applies p through the store and swaps the cached entry for the result.
func (vm *ViewModel) Update(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	vm.clearError()
	if p.Title != nil {
		clean, err := task.NormalizeTitle(*p.Title)
		if err != nil {
			return task.Task{}, vm.fail("update task", err)
		}
		p.Title = &clean
	}

	updated, err := vm.store.UpdateTask(ctx, id, p)
	if err != nil {
		return task.Task{}, vm.fail("update task", err)
	}

	vm.mu.Lock()
	if i := vm.indexOf(id); i >= 0 {
		vm.tasks[i] = updated
	}
	vm.mu.Unlock()
	return updated, nil
}

// Edit renames a task.
func (vm *ViewModel) Edit(ctx context.Context, id, title string) error {
	_, err := vm.Update(ctx, id, task.Patch{Title: &title})
	return err
}

// SetPriority changes a task's priority.
func (vm *ViewModel) SetPriority(ctx context.Context, id string, p task.Priority) error {
	_, err := vm.Update(ctx, id, task.Patch{Priority: &p})
	return err
}

// Toggle flips completion of a cached task. Ids missing from the cache are
// ignored without touching the store, so a stale id from the front end is a no-op.
func (vm *ViewModel) Toggle(ctx context.Context, id string) error {
	vm.mu.RLock()
	i := vm.indexOf(id)
	var completed bool
	if i >= 0 {
		completed = vm.tasks[i].Completed
	}
	vm.mu.RUnlock()
	if i < 0 {
		return nil
	}

	next := !completed
	_, err := vm.Update(ctx, id, task.Patch{Completed: &next})
	return err
}

func (vm *ViewModel) Remove(ctx context.Context, id string) error {
	vm.clearError()
	if err := vm.store.DeleteTask(ctx, id); err != nil {
		return vm.fail("delete task", err)
	}

	vm.mu.Lock()
	if i := vm.indexOf(id); i >= 0 {
		vm.tasks = slices.Delete(vm.tasks, i, i+1)
	}
	vm.mu.Unlock()
	return nil
}

// ClearCompleted deletes every task that is completed in the cache right now.
// The deletes run concurrently; the cache is only reconciled once all of them
// have succeeded. If any fails the whole batch is reported failed and the cache
// keeps every task, including ones whose delete did reach the store, until the
// next Load.
func (vm *ViewModel) ClearCompleted(ctx context.Context) (int, error) {
	vm.clearError()

	vm.mu.RLock()
	var ids []string
	for _, t := range vm.tasks {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}
	vm.mu.RUnlock()
	if len(ids) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := vm.store.DeleteTask(ctx, id); err != nil {
				vm.log.WithError(err).WithField("id", id).Warn("delete in clear completed failed")
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, vm.fail("clear completed tasks", err)
	}

	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		removed[id] = struct{}{}
	}
	vm.mu.Lock()
	vm.tasks = slices.DeleteFunc(vm.tasks, func(t task.Task) bool {
		_, ok := removed[t.ID]
		return ok
	})
	vm.mu.Unlock()
	return len(ids), nil
}

// Tasks returns a copy of the cache in insertion order.
func (vm *ViewModel) Tasks() []task.Task {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.tasks)
}

// Task looks up a cached task by id.
func (vm *ViewModel) Task(id string) (task.Task, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if i := vm.indexOf(id); i >= 0 {
		return vm.tasks[i], true
	}
	return task.Task{}, false
}

// Visible is the cache filtered and sorted by the current filters.
func (vm *ViewModel) Visible() []task.Task {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return task.FilterAndSort(vm.tasks, vm.filters)
}

// Stats counts the whole cache regardless of filters.
func (vm *ViewModel) Stats() task.Stats {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return task.ComputeStats(vm.tasks)
}

func (vm *ViewModel) Filters() task.Filters {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.filters
}

// SetFilters merges p into the current filters. An invalid result is rejected
// and the filters stay unchanged.
func (vm *ViewModel) SetFilters(p task.FilterPatch) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	next := vm.filters.Merge(p)
	if err := next.Validate(); err != nil {
		return err
	}
	vm.filters = next
	return nil
}

// ApplyFilters replaces the filters wholesale, rejecting invalid ones.
func (vm *ViewModel) ApplyFilters(f task.Filters) error {
	if err := f.Validate(); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.filters = f
	vm.mu.Unlock()
	return nil
}

func (vm *ViewModel) ResetFilters() {
	vm.mu.Lock()
	vm.filters = task.DefaultFilters()
	vm.mu.Unlock()
}

func (vm *ViewModel) Loading() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.loading
}

// Err is the current error message, empty when the last operation succeeded.
func (vm *ViewModel) Err() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.errMsg
}

func (vm *ViewModel) indexOf(id string) int {
	return slices.IndexFunc(vm.tasks, func(t task.Task) bool { return t.ID == id })
}

func (vm *ViewModel) clearError() {
	vm.mu.Lock()
	vm.errMsg = ""
	vm.mu.Unlock()
}

// fail records err as the current error message and returns it unchanged.
func (vm *ViewModel) fail(action string, err error) error {
	vm.mu.Lock()
	vm.errMsg = message(action, err)
	vm.mu.Unlock()
	vm.log.WithError(err).WithField("action", action).Warn("operation failed")
	return err
}

func message(action string, err error) string {
	return fmt.Sprintf("%s failed: %v", action, err)
}
