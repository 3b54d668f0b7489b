// Package storage persists tasks in a local SQLite database. The database is opened
// lazily on first use, shared by every caller of a Store, and reopened on demand
// after a failed attempt.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"taskpad/internal/task"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options identify the database and its layout.
type Options struct {
	Dir        string
	Name       string
	Version    int
	Collection string
}

// State is the lifecycle of the shared connection.
type State int

const (
	StateUnopened State = iota
	StateOpening
	StateOpen
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Option func(*Store)

func WithLogger(l *logrus.Entry) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces time.Now for timestamping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUID generator used for new task ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

type Store struct {
	opts  Options
	q     queries
	log   *logrus.Entry
	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	db    *sql.DB
	state State
	open  singleflight.Group
}

// New validates opts and returns an unopened Store.
func New(opts Options, options ...Option) (*Store, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("database name is empty")
	}
	if opts.Version < 1 {
		return nil, fmt.Errorf("schema version must be positive, got %d", opts.Version)
	}
	if !identRe.MatchString(opts.Collection) {
		return nil, fmt.Errorf("collection name %q is not a valid identifier", opts.Collection)
	}
	s := &Store{
		opts:  opts,
		q:     buildQueries(opts.Collection),
		log:   logrus.NewEntry(logrus.StandardLogger()),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range options {
		o(s)
	}
	s.log = s.log.WithField("component", "storage")
	return s, nil
}

// Path is the database file backing the store.
func (s *Store) Path() string {
	return filepath.Join(s.opts.Dir, s.opts.Name+".db")
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close releases the connection. The next call opens it again.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.state = StateUnopened
	return err
}

// conn returns the shared connection, opening it if needed. Concurrent callers
// wait on the same open; a failed open is not remembered.
func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	if db := s.db; db != nil {
		s.mu.Unlock()
		return db, nil
	}
	s.mu.Unlock()

	v, err, _ := s.open.Do("open", func() (any, error) {
		s.mu.Lock()
		if db := s.db; db != nil {
			s.mu.Unlock()
			return db, nil
		}
		s.state = StateOpening
		s.mu.Unlock()

		db, err := s.openDB(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateFailed
			s.log.WithError(err).WithField("path", s.Path()).Warn("open database failed")
			return nil, err
		}
		s.db = db
		s.state = StateOpen
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func (s *Store) openDB(ctx context.Context) (*sql.DB, error) {
	path := s.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, wrap(ErrStorageUnavailable, err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, wrap(ErrStorageUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrap(ErrStorageUnavailable, err)
	}
	if err := s.upgrade(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"path": path, "version": s.opts.Version}).Info("database open")
	return db, nil
}

// GetAllTasks returns every stored task in insertion order.
func (s *Store) GetAllTasks(ctx context.Context) ([]task.Task, error) {
	ctx = context.WithoutCancel(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, s.q.selectAll)
	if err != nil {
		return nil, wrap(ErrStorageRead, err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, wrap(ErrStorageRead, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrStorageRead, err)
	}
	return tasks, nil
}

// AddTask stores a new task with a fresh id and both timestamps set to now.
func (s *Store) AddTask(ctx context.Context, d task.Draft) (task.Task, error) {
	ctx = context.WithoutCancel(ctx)
	if !d.Priority.Valid() {
		return task.Task{}, wrap(ErrStorageWrite, fmt.Errorf("%w: %q", task.ErrInvalidPriority, d.Priority))
	}
	db, err := s.conn(ctx)
	if err != nil {
		return task.Task{}, err
	}

	now := s.now().UTC()
	t := task.Task{
		ID:        s.newID(),
		Title:     d.Title,
		Completed: d.Completed,
		Priority:  d.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := db.ExecContext(ctx, s.q.insert,
		t.ID, t.Title, boolToInt(t.Completed), string(t.Priority), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return task.Task{}, wrap(ErrStorageWrite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return task.Task{}, wrap(ErrStorageWrite, err)
	}
	if n == 0 {
		return task.Task{}, fmt.Errorf("%w: %s", ErrDuplicateKey, t.ID)
	}
	return t, nil
}

// UpdateTask merges p onto the stored task inside one transaction. CreatedAt is
// always kept from the stored record and UpdatedAt is refreshed.
func (s *Store) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	ctx = context.WithoutCancel(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return task.Task{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return task.Task{}, wrap(ErrStorageWrite, err)
	}
	defer tx.Rollback()

	existing, err := scanTask(tx.QueryRowContext(ctx, s.q.selectOne, id))
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return task.Task{}, wrap(ErrStorageWrite, err)
	}

	merged := p.Apply(existing)
	if !merged.Priority.Valid() {
		return task.Task{}, wrap(ErrStorageWrite, fmt.Errorf("%w: %q", task.ErrInvalidPriority, merged.Priority))
	}
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = s.now().UTC()
	if merged.UpdatedAt.Before(existing.UpdatedAt) {
		merged.UpdatedAt = existing.UpdatedAt
	}

	if _, err := tx.ExecContext(ctx, s.q.update,
		merged.Title, boolToInt(merged.Completed), string(merged.Priority), formatTime(merged.UpdatedAt), id); err != nil {
		return task.Task{}, wrap(ErrStorageWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return task.Task{}, wrap(ErrStorageWrite, err)
	}
	return merged, nil
}

// DeleteTask removes a task. Deleting an unknown id is not an error.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, s.q.delete, id); err != nil {
		return wrap(ErrStorageWrite, err)
	}
	return nil
}

func (s *Store) ClearAllTasks(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, s.q.clear); err != nil {
		return wrap(ErrStorageWrite, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (task.Task, error) {
	var (
		t                task.Task
		completed        int
		prio             string
		created, updated string
	)
	if err := sc.Scan(&t.ID, &t.Title, &completed, &prio, &created, &updated); err != nil {
		return task.Task{}, err
	}
	t.Completed = completed != 0
	t.Priority = task.Priority(prio)
	if !t.Priority.Valid() {
		return task.Task{}, fmt.Errorf("task %s: %w: %q", t.ID, task.ErrInvalidPriority, prio)
	}
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return task.Task{}, fmt.Errorf("task %s: created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return task.Task{}, fmt.Errorf("task %s: updated_at: %w", t.ID, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	u.RawQuery = q.Encode()
	return u.String()
}
