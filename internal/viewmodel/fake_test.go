package viewmodel

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"taskpad/internal/storage"
	"taskpad/internal/task"
)

// fakeStore is an in-memory Store with per-operation failure injection.
type fakeStore struct {
	mu       sync.Mutex
	tasks    map[string]task.Task
	order    []string
	seq      int
	now      time.Time
	failLoad error
	failAdd  error
	failDel  map[string]error
	calls    map[string]int

	// When set, each delete announces itself on started and waits for release.
	started chan string
	release chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:   map[string]task.Task{},
		now:     time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		failDel: map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeStore) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeStore) seed(title string, p task.Priority, done bool) task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	at := f.tick()
	t := task.Task{ID: "t" + strconv.Itoa(f.seq), Title: title, Priority: p, Completed: done, CreatedAt: at, UpdatedAt: at}
	f.tasks[t.ID] = t
	f.order = append(f.order, t.ID)
	return t
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tasks[id]
	return ok
}

func (f *fakeStore) GetAllTasks(ctx context.Context) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	out := []task.Task{}
	for _, id := range f.order {
		if t, ok := f.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) AddTask(ctx context.Context, d task.Draft) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["add"]++
	if f.failAdd != nil {
		return task.Task{}, f.failAdd
	}
	f.seq++
	at := f.tick()
	t := task.Task{ID: "t" + strconv.Itoa(f.seq), Title: d.Title, Priority: d.Priority, Completed: d.Completed, CreatedAt: at, UpdatedAt: at}
	f.tasks[t.ID] = t
	f.order = append(f.order, t.ID)
	return t, nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	existing, ok := f.tasks[id]
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	merged := p.Apply(existing)
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = f.tick()
	f.tasks[id] = merged
	return merged, nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id string) error {
	if f.started != nil {
		f.started <- id
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if err := f.failDel[id]; err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

func nullEntry() (*logrus.Entry, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	return logrus.NewEntry(l), hook
}
