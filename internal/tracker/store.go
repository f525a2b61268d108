package tracker

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/pathtracker/internal/db"
	"github.com/udisondev/pathtracker/internal/model"
)

// Store persists characters. Implemented by db.CharacterRepository.
type Store interface {
	Create(ctx context.Context, c *model.Character) error
	Save(ctx context.Context, c *model.Character) error
	LoadByID(ctx context.Context, id uuid.UUID) (*model.Character, error)
	List(ctx context.Context) ([]db.CharacterSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ Store = (*db.CharacterRepository)(nil)

// MemoryStore keeps characters in process memory. Used when the tracker
// runs without a database and in tests. Thread-safe.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Data
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]model.Data)}
}

// Create stores a new character.
func (s *MemoryStore) Create(_ context.Context, c *model.Character) error {
	d := c.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[d.ID]; ok {
		return fmt.Errorf("character %s already exists", d.ID)
	}
	s.items[d.ID] = d
	return nil
}

// Save overwrites an existing character.
func (s *MemoryStore) Save(_ context.Context, c *model.Character) error {
	d := c.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[d.ID]; !ok {
		return fmt.Errorf("character %s: %w", d.ID, model.ErrNotFound)
	}
	s.items[d.ID] = d
	return nil
}

// LoadByID returns nil, nil when the character does not exist.
func (s *MemoryStore) LoadByID(_ context.Context, id uuid.UUID) (*model.Character, error) {
	s.mu.RLock()
	d, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return model.Restore(d)
}

// List returns all characters ordered by name.
func (s *MemoryStore) List(_ context.Context) ([]db.CharacterSummary, error) {
	s.mu.RLock()
	out := make([]db.CharacterSummary, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, db.CharacterSummary{ID: d.ID, Name: d.Name, Class: d.Class, Level: d.Level, UpdatedAt: d.UpdatedAt})
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b db.CharacterSummary) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

// Delete removes a character.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("character %s: %w", id, model.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}
