// Package memory implements the repository interfaces in process memory. It
// mirrors the unique constraints and cascades of the Postgres schema and is
// used for development runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/devlab/internal/domain"
	"github.com/spec-kit/devlab/internal/repository"
)

type dataset struct {
	users         map[string]domain.User
	projects      map[string]domain.Project
	teams         map[string]domain.Team
	registrations map[string]domain.RegistrationRequest
	lastTS        time.Time
}

func newDataset() *dataset {
	return &dataset{
		users:         make(map[string]domain.User),
		projects:      make(map[string]domain.Project),
		teams:         make(map[string]domain.Team),
		registrations: make(map[string]domain.RegistrationRequest),
	}
}

func (d *dataset) clone() *dataset {
	cp := &dataset{
		users:         make(map[string]domain.User, len(d.users)),
		projects:      make(map[string]domain.Project, len(d.projects)),
		teams:         make(map[string]domain.Team, len(d.teams)),
		registrations: make(map[string]domain.RegistrationRequest, len(d.registrations)),
		lastTS:        d.lastTS,
	}
	for k, v := range d.users {
		cp.users[k] = v
	}
	for k, v := range d.projects {
		cp.projects[k] = v
	}
	for k, v := range d.teams {
		cp.teams[k] = cloneTeam(v)
	}
	for k, v := range d.registrations {
		cp.registrations[k] = v
	}
	return cp
}

// tick returns a strictly increasing timestamp so creation order is stable.
func (d *dataset) tick(now time.Time) time.Time {
	if !now.After(d.lastTS) {
		now = d.lastTS.Add(time.Microsecond)
	}
	d.lastTS = now
	return now
}

// access runs fn with exclusive use of the dataset.
type access func(fn func(d *dataset) error) error

// Store is a mutex-guarded repository.Store.
type Store struct {
	mu    sync.Mutex
	data  *dataset
	clock func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newDataset(), clock: time.Now}
}

// WithClock overrides the time source used for timestamps.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) locked(fn func(d *dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{with: s.locked, clock: s.clock}
}

func (s *Store) Projects() repository.ProjectRepository {
	return &projectRepo{with: s.locked, clock: s.clock}
}

func (s *Store) Teams() repository.TeamRepository {
	return &teamRepo{with: s.locked, clock: s.clock}
}

func (s *Store) Registrations() repository.RegistrationRepository {
	return &registrationRepo{with: s.locked, clock: s.clock}
}

// WithinTx serializes transactions. fn works on a copy that replaces the
// committed state only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(&txStore{data: work, clock: s.clock}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type txStore struct {
	data  *dataset
	clock func() time.Time
}

func (t *txStore) direct(fn func(d *dataset) error) error { return fn(t.data) }

func (t *txStore) Users() repository.UserRepository {
	return &userRepo{with: t.direct, clock: t.clock}
}

func (t *txStore) Projects() repository.ProjectRepository {
	return &projectRepo{with: t.direct, clock: t.clock}
}

func (t *txStore) Teams() repository.TeamRepository {
	return &teamRepo{with: t.direct, clock: t.clock}
}

func (t *txStore) Registrations() repository.RegistrationRepository {
	return &registrationRepo{with: t.direct, clock: t.clock}
}

func (t *txStore) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(t)
}

func newID() string { return uuid.NewString() }

func cloneTeam(t domain.Team) domain.Team {
	t.MemberIDs = append([]string(nil), t.MemberIDs...)
	return t
}

func contains(haystack, q string) bool {
	return strings.Contains(strings.ToLower(haystack), q)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func sortNewest[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}

var (
	_ repository.Store                = (*Store)(nil)
	_ repository.Store                = (*txStore)(nil)
	_ repository.RevocationRepository = (*Revocations)(nil)
)
