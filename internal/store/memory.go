package store

import (
	"context"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"assetadmin/internal/scope"
	"assetadmin/internal/submit"
)

// Memory: in-memory хранилище (режим без БД и тесты)
type Memory struct {
	mu       sync.RWMutex
	records  map[string]*Record
	mappings map[string]*scope.Mapping
	entropy  io.Reader
	now      func() time.Time
}

func NewMemory() *Memory {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Memory{
		records:  make(map[string]*Record),
		mappings: make(map[string]*scope.Mapping),
		entropy:  ulid.Monotonic(src, 0),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// newID вызывается под write-lock: Monotonic не потокобезопасен
func (s *Memory) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func copyRecord(r *Record) Record {
	out := *r
	out.Attributes = make(map[string]any, len(r.Attributes))
	for k, v := range r.Attributes {
		out.Attributes[k] = v
	}
	return out
}

func copyMapping(m *scope.Mapping) scope.Mapping {
	out := *m
	out.SelectedFieldIDs = append([]string{}, m.SelectedFieldIDs...)
	return out
}

// ===== records =====

func (s *Memory) CreateRecord(_ context.Context, p submit.Payload, actor string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &Record{ID: s.newID(), Version: 1, CreatedAt: now, UpdatedAt: now, CreatedBy: actor, UpdatedBy: actor}
	rec.apply(p)
	s.records[rec.ID] = rec
	return copyRecord(rec), nil
}

func (s *Memory) UpdateRecord(_ context.Context, id string, expectedVersion int64, p submit.Payload, actor string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[id]
	if rec == nil || rec.Deleted {
		return Record{}, ErrNotFound
	}
	if expectedVersion != 0 && rec.Version != expectedVersion {
		return Record{}, ErrVersionConflict
	}
	rec.apply(p)
	rec.Version++
	rec.UpdatedAt = s.now()
	rec.UpdatedBy = actor
	return copyRecord(rec), nil
}

// DeleteRecord: мягкое удаление
func (s *Memory) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[id]
	if rec == nil || rec.Deleted {
		return ErrNotFound
	}
	rec.Deleted = true
	rec.Version++
	rec.UpdatedAt = s.now()
	return nil
}

func (s *Memory) GetRecord(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.records[id]
	if rec == nil || rec.Deleted {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *Memory) ListRecords(_ context.Context, lp ListParams) ([]Record, int, error) {
	s.mu.RLock()
	all := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Deleted {
			continue
		}
		if lp.ModuleID != "" && r.ModuleID != lp.ModuleID {
			continue
		}
		if lp.CompanyID != "" && r.CompanyID != lp.CompanyID {
			continue
		}
		if !matchesQuery(*r, lp.Q) {
			continue
		}
		all = append(all, copyRecord(r))
	}
	s.mu.RUnlock()

	// по умолчанию: порядок создания (ULID)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	sortRecords(all, lp.Sort)
	return Page(all, lp), len(all), nil
}

// ===== scope mappings =====

// ListScopeMappings возвращает маппинги компании в порядке создания; пустой companyID, все.
func (s *Memory) ListScopeMappings(_ context.Context, companyID string) ([]scope.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scope.Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		if companyID != "" && m.CompanyID != companyID {
			continue
		}
		out = append(out, copyMapping(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) GetScopeMapping(_ context.Context, id string) (scope.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.mappings[id]
	if m == nil {
		return scope.Mapping{}, ErrNotFound
	}
	return copyMapping(m), nil
}

func (s *Memory) CreateScopeMapping(_ context.Context, m scope.Mapping) (scope.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	m.ID = s.newID()
	m.CreatedAt, m.UpdatedAt = now, now
	m.SelectedFieldIDs = append([]string{}, m.SelectedFieldIDs...)
	s.mappings[m.ID] = &m
	return copyMapping(&m), nil
}

func (s *Memory) UpdateScopeMapping(_ context.Context, id string, m scope.Mapping) (scope.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.mappings[id]
	if cur == nil {
		return scope.Mapping{}, ErrNotFound
	}
	m.ID = id
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = s.now()
	m.SelectedFieldIDs = append([]string{}, m.SelectedFieldIDs...)
	s.mappings[id] = &m
	return copyMapping(&m), nil
}

// DeleteScopeMapping удаляет физически: компания сняла конфигурацию модуля
func (s *Memory) DeleteScopeMapping(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[id]; !ok {
		return ErrNotFound
	}
	delete(s.mappings, id)
	return nil
}
