package gotable

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryProfileStore keeps profiles in process memory. It enforces the
// single default profile constraint like the SQL indexes do.
type MemoryProfileStore struct {
	mu       sync.Mutex
	nextID   uint
	profiles map[uint]Profile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[uint]Profile)}
}

// Get - implements ProfileStore.
func (s *MemoryProfileStore) Get(_ context.Context, q ProfileQuery) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(q), nil
}

func (s *MemoryProfileStore) get(q ProfileQuery) *Profile {
	var found *Profile
	for _, p := range s.profiles {
		if q.Matches(&p) && (found == nil || p.ID < found.ID) {
			found = &p
		}
	}

	return found
}

// GetOrCreate - implements ProfileStore.
func (s *MemoryProfileStore) GetOrCreate(_ context.Context, q ProfileQuery, dump string) (*Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.get(q); p != nil {
		return p, false, nil
	}

	p := q.newProfile()
	p.Dump = dump
	if err := s.put(&p); err != nil {
		return nil, false, err
	}

	return &p, true, nil
}

// Save - implements ProfileStore.
func (s *MemoryProfileStore) Save(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put(p)
}

// put stores p, assigning an id to new profiles.
func (s *MemoryProfileStore) put(p *Profile) error {
	if p.IsDefault {
		for _, other := range s.profiles {
			if other.ID != p.ID && other.IsDefault && other.TableViewName == p.TableViewName && sameOwner(other.UserID, p.UserID) {
				return fmt.Errorf("%w: table %s", ErrDuplicateDefaultProfile, p.TableViewName)
			}
		}
	}

	now := time.Now()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.profiles[p.ID] = *p

	return nil
}

// List - implements ProfileStore.
func (s *MemoryProfileStore) List(_ context.Context, q ProfileQuery) ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ret []Profile
	for _, p := range s.profiles {
		if q.Matches(&p) {
			ret = append(ret, p)
		}
	}

	slices.SortFunc(ret, func(a, b Profile) int {
		return cmp.Or(cmp.Compare(a.GetLabel(), b.GetLabel()), cmp.Compare(a.ID, b.ID))
	})

	return ret, nil
}

// Delete - implements ProfileStore.
func (s *MemoryProfileStore) Delete(_ context.Context, q ProfileQuery) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, p := range s.profiles {
		if q.Matches(&p) {
			delete(s.profiles, id)
			n++
		}
	}

	return n, nil
}

func sameOwner(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

var _ ProfileStore = (*MemoryProfileStore)(nil)
