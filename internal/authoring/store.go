package authoring

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-tos/internal/tqs"
)

// BlueprintStore persists blueprints and their question sheets.
type BlueprintStore interface {
	Create(ctx context.Context, b *Blueprint) (string, error)
	Get(ctx context.Context, id string) (*Blueprint, error)
	// List returns blueprints newest first. An empty authorID lists all.
	List(ctx context.Context, authorID string) ([]Listing, error)
	SaveSheet(ctx context.Context, id string, sheet *tqs.Sheet) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory implementation of BlueprintStore. Blueprints
// are kept encoded so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	blueprints map[string][]byte
}

// NewMemoryStore creates a new in-memory blueprint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blueprints: make(map[string][]byte),
	}
}

func (s *MemoryStore) Create(_ context.Context, b *Blueprint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = uuid.NewString()
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = b.CreatedAt

	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encode blueprint: %w", err)
	}
	s.blueprints[b.ID] = data
	return b.ID, nil
}

func (s *MemoryStore) get(id string) (*Blueprint, error) {
	data, ok := s.blueprints[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var b Blueprint
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	return &b, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Blueprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *MemoryStore) List(_ context.Context, authorID string) ([]Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Listing, 0, len(s.blueprints))
	for id := range s.blueprints {
		b, err := s.get(id)
		if err != nil {
			return nil, err
		}
		if authorID != "" && b.Input.AuthorID != authorID {
			continue
		}
		out = append(out, b.listing())
	}
	slices.SortFunc(out, func(a, b Listing) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) SaveSheet(_ context.Context, id string, sheet *tqs.Sheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.get(id)
	if err != nil {
		return err
	}
	b.Sheet = sheet
	b.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode blueprint: %w", err)
	}
	s.blueprints[id] = data
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blueprints[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.blueprints, id)
	return nil
}
