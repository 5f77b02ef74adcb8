package inmemory

import (
	"context"
	"sync"

	"github.com/playbind/server/internal/repository/position"
)

type repo struct {
	mu        sync.RWMutex
	positions map[string]float64
}

func NewRepo() *repo {
	return &repo{positions: make(map[string]float64)}
}

func (r *repo) SetPosition(_ context.Context, params *position.SetPositionParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[params.SourceURL] = params.Seconds

	return nil
}

func (r *repo) GetPosition(_ context.Context, sourceURL string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seconds, ok := r.positions[sourceURL]
	if !ok {
		return 0, position.ErrPositionNotFound
	}

	return seconds, nil
}

func (r *repo) RemovePosition(_ context.Context, sourceURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.positions[sourceURL]; !ok {
		return position.ErrPositionNotFound
	}
	delete(r.positions, sourceURL)

	return nil
}
