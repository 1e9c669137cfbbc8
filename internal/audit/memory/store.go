// Package memory is an in-memory TrailStore for tests and single-process
// deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/execboard/boardroom/internal/audit"
)

// Store holds trails in a map guarded by a RWMutex, so historical-accuracy
// reads never block the whole store against concurrent appends.
type Store struct {
	mu     sync.RWMutex
	trails map[string]*audit.Trail
}

// New creates an empty store.
func New() *Store {
	return &Store{trails: make(map[string]*audit.Trail)}
}

func (s *Store) Save(ctx context.Context, trail *audit.Trail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trails[trail.ID] = trail
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*audit.Trail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trail, ok := s.trails[id]
	if !ok {
		return nil, fmt.Errorf("audit trail %s not found", id)
	}
	cp := *trail
	return &cp, nil
}

func (s *Store) OutcomesByRole(ctx context.Context, role string) ([]audit.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var outcomes []audit.Outcome
	for _, trail := range s.trails {
		if string(trail.Role) == role && trail.Outcome != "" {
			outcomes = append(outcomes, trail.Outcome)
		}
	}
	return outcomes, nil
}

func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int
	for id, trail := range s.trails {
		if trail.Outcome == "" && trail.CreatedAt.Before(cutoff) {
			delete(s.trails, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Close() error {
	return nil
}
