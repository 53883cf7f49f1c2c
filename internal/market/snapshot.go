package market

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the complete set of assets from one refresh. It is never
// mutated after construction; a nil *Snapshot behaves as an empty one.
type Snapshot struct {
	id        string
	source    string
	fetchedAt time.Time
	assets    []Asset
	byID      map[string]int
}

// NewSnapshot copies assets into a new immutable snapshot.
func NewSnapshot(source string, assets []Asset, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		id:        uuid.NewString(),
		source:    source,
		fetchedAt: fetchedAt,
		assets:    make([]Asset, len(assets)),
		byID:      make(map[string]int, len(assets)),
	}
	copy(s.assets, assets)
	for i, a := range s.assets {
		s.byID[a.ID] = i
	}
	return s
}

func (s *Snapshot) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *Snapshot) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.assets)
}

// Assets returns a copy of the assets in source order.
func (s *Snapshot) Assets() []Asset {
	if s == nil {
		return []Asset{}
	}
	out := make([]Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

// Find looks an asset up by id.
func (s *Snapshot) Find(id string) (Asset, bool) {
	if s == nil {
		return Asset{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Asset{}, false
	}
	return s.assets[i], true
}

// Filter returns the assets whose name or symbol contains query,
// ignoring case. An empty query matches everything.
func (s *Snapshot) Filter(query string) []Asset {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.Assets()
	}
	out := []Asset{}
	if s == nil {
		return out
	}
	for _, a := range s.assets {
		if strings.Contains(strings.ToLower(a.Name), q) || strings.Contains(strings.ToLower(a.Symbol), q) {
			out = append(out, a)
		}
	}
	return out
}

// SortedByName returns the assets ordered by name, then id.
func (s *Snapshot) SortedByName() []Asset {
	out := s.Assets()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type snapshotJSON struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
	Assets    []Asset   `json:"assets"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		ID:        s.ID(),
		Source:    s.Source(),
		FetchedAt: s.FetchedAt(),
		Assets:    s.Assets(),
	})
}
