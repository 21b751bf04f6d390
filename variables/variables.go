// Package variables implements the per-user global variable store. Values
// are strings; arithmetic mutations parse base 10 and treat non-numeric
// values as 0. Conflicting writes are serialized by the backing Repo.
package variables

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// Variable is one named value owned by a user account.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Repo is the persistence boundary, scoped by user id.
//
// Set upserts. SetExisting and AddInt are update-only: they report false
// when no variable with that name exists, and never create one (variable
// changes on a missing name are a no-op by contract). AddInt must be
// atomic: two concurrent increments may not lose an update.
type Repo interface {
	Get(ctx context.Context, userID, name string) (string, bool, error)
	Set(ctx context.Context, userID, name, value string) error
	SetExisting(ctx context.Context, userID, name, value string) (bool, error)
	AddInt(ctx context.Context, userID, name string, delta int64) (bool, error)
	All(ctx context.Context, userID string) ([]Variable, error)
	Replace(ctx context.Context, userID string, vars []Variable) error
}

// Store binds a Repo to one user account. Sessions construct a Store at
// connection time; there is no process-wide instance.
type Store struct {
	repo   Repo
	userID string
}

func NewStore(repo Repo, userID string) *Store {
	return &Store{repo: repo, userID: userID}
}

func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	return s.repo.Get(ctx, s.userID, name)
}

func (s *Store) Set(ctx context.Context, name, value string) error {
	return s.repo.Set(ctx, s.userID, name, value)
}

func (s *Store) SetExisting(ctx context.Context, name, value string) (bool, error) {
	return s.repo.SetExisting(ctx, s.userID, name, value)
}

func (s *Store) AddInt(ctx context.Context, name string, delta int64) (bool, error) {
	return s.repo.AddInt(ctx, s.userID, name, delta)
}

func (s *Store) All(ctx context.Context) ([]Variable, error) {
	return s.repo.All(ctx, s.userID)
}

// Replace makes the stored set exactly vars: variables absent from the new
// list are deleted, the rest upserted.
func (s *Store) Replace(ctx context.Context, vars []Variable) error {
	return s.repo.Replace(ctx, s.userID, vars)
}

// ParseInt coerces a variable value for arithmetic: base-10 integer, 0 for
// anything that does not parse.
func ParseInt(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// MemoryRepo is a mutex-guarded in-memory Repo used in tests and storeless
// runs.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string]map[string]string // userID -> name -> value
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]map[string]string)}
}

func (m *MemoryRepo) Get(_ context.Context, userID, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[userID][name]
	return v, ok, nil
}

func (m *MemoryRepo) Set(_ context.Context, userID, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[userID] == nil {
		m.data[userID] = make(map[string]string)
	}
	m.data[userID][name] = value
	return nil
}

func (m *MemoryRepo) SetExisting(_ context.Context, userID, name, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[userID][name]; !ok {
		return false, nil
	}
	m.data[userID][name] = value
	return true, nil
}

func (m *MemoryRepo) AddInt(_ context.Context, userID, name string, delta int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[userID][name]
	if !ok {
		return false, nil
	}
	m.data[userID][name] = strconv.FormatInt(ParseInt(cur)+delta, 10)
	return true, nil
}

func (m *MemoryRepo) All(_ context.Context, userID string) ([]Variable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Variable, 0, len(m.data[userID]))
	for name, value := range m.data[userID] {
		out = append(out, Variable{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepo) Replace(_ context.Context, userID string, vars []Variable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]string, len(vars))
	for _, v := range vars {
		next[v.Name] = v.Value
	}
	m.data[userID] = next
	return nil
}
