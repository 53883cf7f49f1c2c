package portfolio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linchengweiii/crypto-dashboard/internal/kv"
)

// StorageKey is the single entry holding the serialised collection.
const StorageKey = "cryptoPortfolio"

// KVRepo stores the collection as a JSON array under one key.
type KVRepo struct {
	store kv.Store
	key   string
}

func NewKVRepo(store kv.Store) *KVRepo {
	return &KVRepo{store: store, key: StorageKey}
}

func (r *KVRepo) Load(ctx context.Context) ([]Holding, error) {
	b, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Holding{}, nil
	}
	var hs []Holding
	if err := json.Unmarshal(b, &hs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	if hs == nil {
		hs = []Holding{}
	}
	return hs, nil
}

func (r *KVRepo) Save(ctx context.Context, hs []Holding) error {
	if hs == nil {
		hs = []Holding{}
	}
	b, err := json.Marshal(hs)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, r.key, b)
}
