package store

import (
	"context"
	"sort"
	"sync"

	"atti/internal/determinazioni/models"
	id "atti/pkg/domain"
	"atti/pkg/platform/sentinel"
)

// InMemory keeps determinazioni in process. Records are copied on the way in
// and out so callers never share state with the store.
type InMemory struct {
	mu       sync.RWMutex
	records  map[id.DeterminazioneID]*models.Determinazione
	byNumber map[string]id.DeterminazioneID
	nextID   int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:  make(map[id.DeterminazioneID]*models.Determinazione),
		byNumber: make(map[string]id.DeterminazioneID),
	}
}

// Create assigns an ID and stores d. A reused numero yields sentinel.ErrConflict.
func (s *InMemory) Create(_ context.Context, d *models.Determinazione) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byNumber[d.Number]; taken {
		return sentinel.ErrConflict
	}
	s.nextID++
	d.ID = id.DeterminazioneID(s.nextID)
	stored := *d
	s.records[d.ID] = &stored
	s.byNumber[d.Number] = d.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, detID id.DeterminazioneID) (*models.Determinazione, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[detID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *d
	return &found, nil
}

// ListAll returns every record, newest first.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Determinazione, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Determinazione, 0, len(s.records))
	for _, d := range s.records {
		cp := *d
		out = append(out, &cp)
	}
	sortNewestFirst(out)
	return out, nil
}

// Execute loads the record, runs validate and, when it passes, applies mutate
// and stores the result atomically.
func (s *InMemory) Execute(_ context.Context, detID id.DeterminazioneID, validate func(*models.Determinazione) error, mutate func(*models.Determinazione)) (*models.Determinazione, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.records[detID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := *d
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.records[detID] = &working
	out := working
	return &out, nil
}

func (s *InMemory) MaxSequence(_ context.Context, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxSeq := 0
	for _, d := range s.records {
		if d.Year == year && d.Sequence > maxSeq {
			maxSeq = d.Sequence
		}
	}
	return maxSeq, nil
}

func sortNewestFirst(ds []*models.Determinazione) {
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.After(ds[j].CreatedAt)
		}
		return ds[i].ID > ds[j].ID
	})
}
