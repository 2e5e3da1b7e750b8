package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

// MemStore is an in-memory [models.EntityStore] with failure injection.
//
// Stored values are copied on the way in and out, so callers never alias store state.
type MemStore[T models.Entity] struct {
	mu     sync.Mutex
	name   string
	items  map[string]T
	byKey  map[string]string
	order  []string
	clone  func(T) T
	assign func(T, string, time.Time)

	// FailCreate, when set, is consulted before every create; a non-nil error aborts it.
	FailCreate func(entity T) error
	// FailFind, when set, is consulted before every natural key lookup.
	FailFind func(key string) error
	// StaleLookups makes the next n lookups of a key report not found even when the key is stored.
	StaleLookups map[string]int

	FindCalls       int
	CreateCalls     int
	CreateManyCalls int
}

func newMemStore[T models.Entity](name string, clone func(T) T, assign func(T, string, time.Time)) *MemStore[T] {
	return &MemStore[T]{
		name:         name,
		items:        make(map[string]T),
		byKey:        make(map[string]string),
		clone:        clone,
		assign:       assign,
		StaleLookups: make(map[string]int),
	}
}

// NewArtistStore returns an empty in-memory artist store.
func NewArtistStore() *MemStore[*models.Artist] {
	return newMemStore("artists",
		func(a *models.Artist) *models.Artist { c := *a; return &c },
		func(a *models.Artist, id string, now time.Time) { a.ID, a.CreatedAt, a.UpdatedAt = id, now, now },
	)
}

// NewAlbumStore returns an empty in-memory album store.
func NewAlbumStore() *MemStore[*models.Album] {
	return newMemStore("albums",
		func(a *models.Album) *models.Album {
			c := *a
			c.ArtistKeys = append([]string(nil), a.ArtistKeys...)
			return &c
		},
		func(a *models.Album, id string, now time.Time) { a.ID, a.CreatedAt, a.UpdatedAt = id, now, now },
	)
}

// NewTrackStore returns an empty in-memory track store.
func NewTrackStore() *MemStore[*models.Track] {
	return newMemStore("tracks",
		func(t *models.Track) *models.Track {
			c := *t
			c.ArtistKeys = append([]string(nil), t.ArtistKeys...)
			return &c
		},
		func(t *models.Track, id string, now time.Time) { t.ID, t.CreatedAt, t.UpdatedAt = id, now, now },
	)
}

func (s *MemStore[T]) FindByNaturalKey(_ context.Context, key string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.FindCalls++
	if s.FailFind != nil {
		if err := s.FailFind(key); err != nil {
			return zero, err
		}
	}
	if n := s.StaleLookups[key]; n > 0 {
		s.StaleLookups[key] = n - 1
		return zero, fmt.Errorf("%w: %s %q", shared.ErrNotFound, s.name, key)
	}

	id, ok := s.byKey[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s %q", shared.ErrNotFound, s.name, key)
	}
	return s.clone(s.items[id]), nil
}

func (s *MemStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", shared.ErrNotFound, s.name, id)
	}
	return s.clone(item), nil
}

func (s *MemStore[T]) Create(_ context.Context, entity T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CreateCalls++
	return s.insert(entity)
}

func (s *MemStore[T]) insert(entity T) (T, error) {
	var zero T
	if s.FailCreate != nil {
		if err := s.FailCreate(entity); err != nil {
			return zero, shared.WriteError(s.name, err)
		}
	}
	if err := entity.Validate(); err != nil {
		return zero, shared.WriteError(s.name, err)
	}
	if _, exists := s.byKey[entity.NaturalKey()]; exists {
		return zero, shared.DuplicateError(s.name, entity.NaturalKey(), fmt.Errorf("key already stored"))
	}

	stored := s.clone(entity)
	id := shared.GenerateID()
	s.assign(stored, id, time.Now().UTC())

	s.items[id] = stored
	s.byKey[stored.NaturalKey()] = id
	s.order = append(s.order, id)
	return s.clone(stored), nil
}

// CreateMany inserts all entities or none.
func (s *MemStore[T]) CreateMany(_ context.Context, entities []T) ([]T, error) {
	if len(entities) == 0 {
		return []T{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateManyCalls++

	mark := len(s.order)
	created := make([]T, 0, len(entities))
	for _, entity := range entities {
		c, err := s.insert(entity)
		if err != nil {
			s.truncate(mark)
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

func (s *MemStore[T]) truncate(mark int) {
	for _, id := range s.order[mark:] {
		delete(s.byKey, s.items[id].NaturalKey())
		delete(s.items, id)
	}
	s.order = s.order[:mark]
}

func (s *MemStore[T]) List(_ context.Context, limit, offset int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []T{}
	for i, id := range s.order {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.clone(s.items[id]))
	}
	return out, nil
}

func (s *MemStore[T]) Update(_ context.Context, entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[entity.StoreID()]; !ok {
		return fmt.Errorf("%w: %s %q", shared.ErrNotFound, s.name, entity.StoreID())
	}
	s.items[entity.StoreID()] = s.clone(entity)
	return nil
}

func (s *MemStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s %q", shared.ErrNotFound, s.name, id)
	}
	delete(s.byKey, item.NaturalKey())
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored entities.
func (s *MemStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Seed stores entity directly, bypassing failure injection and counters.
func (s *MemStore[T]) Seed(entity T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	hook := s.FailCreate
	s.FailCreate = nil
	defer func() { s.FailCreate = hook }()

	created, err := s.insert(entity)
	if err != nil {
		panic(fmt.Sprintf("seed %s: %v", s.name, err))
	}
	return created
}

type relationKey struct {
	kind        models.RelationKind
	left, right string
}

// MemRelationStore is an in-memory [models.RelationStore].
type MemRelationStore struct {
	mu    sync.Mutex
	rows  map[relationKey]bool
	order []relationKey

	// FailLink, when set, is consulted before every insert.
	FailLink func(kind models.RelationKind, leftID, rightID string) error

	Attempts int
}

// NewRelationStore returns an empty in-memory relation store.
func NewRelationStore() *MemRelationStore {
	return &MemRelationStore{rows: make(map[relationKey]bool)}
}

func (s *MemRelationStore) CreateRelation(_ context.Context, kind models.RelationKind, leftID, rightID string) models.LinkResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Attempts++
	if s.FailLink != nil {
		if err := s.FailLink(kind, leftID, rightID); err != nil {
			return models.LinkResult{Status: models.LinkFailed, Err: shared.WriteError(kind.Table(), err)}
		}
	}

	key := relationKey{kind, leftID, rightID}
	if s.rows[key] {
		return models.LinkResult{Status: models.LinkExists}
	}
	s.rows[key] = true
	s.order = append(s.order, key)
	return models.LinkResult{Status: models.LinkCreated}
}

func (s *MemRelationStore) ListRelations(_ context.Context, kind models.RelationKind, leftID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for _, key := range s.order {
		if key.kind == kind && key.left == leftID {
			ids = append(ids, key.right)
		}
	}
	return ids, nil
}

// Count returns the number of stored rows of kind.
func (s *MemRelationStore) Count(kind models.RelationKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, key := range s.order {
		if key.kind == kind {
			n++
		}
	}
	return n
}
