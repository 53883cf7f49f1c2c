package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultTimeout = 10 * time.Second

// Cache owns the current Snapshot and refreshes it from a Source.
type Cache struct {
	src     Source
	timeout time.Duration
	now     func() time.Time

	refreshing atomic.Bool

	mu          sync.RWMutex
	snap        *Snapshot
	lastErr     error
	lastAttempt time.Time
}

// Status describes the cache for presentation.
type Status struct {
	SnapshotID  string    `json:"snapshotId,omitempty"`
	Source      string    `json:"source"`
	FetchedAt   time.Time `json:"fetchedAt"`
	Count       int       `json:"count"`
	Refreshing  bool      `json:"refreshing"`
	LastError   string    `json:"lastError,omitempty"`
	LastAttempt time.Time `json:"lastAttempt"`
}

// NewCache returns an empty cache. A non-positive timeout uses DefaultTimeout.
func NewCache(src Source, timeout time.Duration) *Cache {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cache{src: src, timeout: timeout, now: time.Now}
}

// Refresh replaces the snapshot with fresh data from the source. On
// failure the previous snapshot stays current. Only one refresh runs at
// a time; overlapping calls get ErrRefreshInFlight.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	if !c.refreshing.CompareAndSwap(false, true) {
		return nil, ErrRefreshInFlight
	}
	defer c.refreshing.Store(false)

	started := c.now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	assets, err := c.src.Assets(ctx)
	if err == nil {
		err = validateAssets(assets)
	}
	if err != nil {
		var dse *DataSourceError
		if !errors.As(err, &dse) {
			err = &DataSourceError{Source: c.src.Name(), Op: "assets", Err: err}
		}
		c.mu.Lock()
		c.lastErr = err
		c.lastAttempt = started
		c.mu.Unlock()
		slog.Warn("market refresh failed", "source", c.src.Name(), "error", err)
		return nil, err
	}

	snap := NewSnapshot(c.src.Name(), assets, c.now())
	c.mu.Lock()
	c.snap = snap
	c.lastErr = nil
	c.lastAttempt = started
	c.mu.Unlock()

	slog.Debug("market snapshot replaced",
		"snapshot_id", snap.ID(),
		"source", snap.Source(),
		"count", snap.Len(),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return snap, nil
}

// Snapshot returns the current snapshot, nil before the first success.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Cache) Find(id string) (Asset, bool) { return c.Snapshot().Find(id) }

func (c *Cache) Filter(query string) []Asset { return c.Snapshot().Filter(query) }

func (c *Cache) SortedByName() []Asset { return c.Snapshot().SortedByName() }

// History fetches the price series for id from the source.
func (c *Cache) History(ctx context.Context, id string) (History, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	h, err := c.src.History(ctx, id)
	if err == nil {
		err = validateHistory(h)
	}
	if err != nil {
		var dse *DataSourceError
		if errors.As(err, &dse) {
			return History{}, err
		}
		return History{}, &DataSourceError{Source: c.src.Name(), Op: "history " + id, Err: err}
	}
	if h.AssetID == "" {
		h.AssetID = id
	}
	return h, nil
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{
		SnapshotID:  c.snap.ID(),
		Source:      c.src.Name(),
		FetchedAt:   c.snap.FetchedAt(),
		Count:       c.snap.Len(),
		Refreshing:  c.refreshing.Load(),
		LastAttempt: c.lastAttempt,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

/* ======================== validation ======================== */

func validateAssets(assets []Asset) error {
	seen := make(map[string]struct{}, len(assets))
	for i, a := range assets {
		if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Symbol) == "" {
			return fmt.Errorf("%w: asset %d: id, name and symbol are required", ErrMalformed, i)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: duplicate asset id %q", ErrMalformed, a.ID)
		}
		seen[a.ID] = struct{}{}
		if !finite(a.Price, a.Change24h, a.MarketCap, a.Volume24h) {
			return fmt.Errorf("%w: asset %q: non-finite number", ErrMalformed, a.ID)
		}
		if a.Price < 0 || a.MarketCap < 0 || a.Volume24h < 0 {
			return fmt.Errorf("%w: asset %q: price, market cap and volume must be >= 0", ErrMalformed, a.ID)
		}
	}
	return nil
}

func validateHistory(h History) error {
	if len(h.Labels) != len(h.Points) {
		return fmt.Errorf("%w: history has %d labels and %d points", ErrMalformed, len(h.Labels), len(h.Points))
	}
	if !finite(h.Points...) {
		return fmt.Errorf("%w: history has non-finite points", ErrMalformed)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
