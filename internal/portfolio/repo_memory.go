package portfolio

import (
	"context"
	"slices"
	"sync"
)

// ===== In-memory adapter =====

type MemoryRepo struct {
	mu       sync.RWMutex
	holdings []Holding
}

func NewMemoryRepo(seed ...Holding) *MemoryRepo {
	return &MemoryRepo{holdings: slices.Clone(seed)}
}

func (r *MemoryRepo) Load(ctx context.Context) ([]Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Holding, len(r.holdings))
	copy(out, r.holdings)
	return out, nil
}

func (r *MemoryRepo) Save(ctx context.Context, hs []Holding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holdings = slices.Clone(hs)
	return nil
}
