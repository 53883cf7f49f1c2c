package market

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

// fakeSource returns whatever the test queues.
type fakeSource struct {
	mu      sync.Mutex
	assets  []Asset
	err     error
	history History
	hErr    error
	calls   int
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Assets(ctx context.Context) ([]Asset, error) {
	f.mu.Lock()
	f.calls++
	block, started := f.block, f.started
	assets, err := f.assets, f.err
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return assets, err
}

func (f *fakeSource) History(ctx context.Context, id string) (History, error) {
	return f.history, f.hErr
}

func TestCache_RefreshReplacesSnapshot(t *testing.T) {
	src := &fakeSource{assets: testAssets()}
	c := NewCache(src, time.Second)

	if c.Snapshot() != nil {
		t.Fatalf("new cache should have no snapshot")
	}

	first, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if first.Len() != 4 || c.Snapshot() != first {
		t.Fatalf("Refresh() did not install snapshot")
	}

	src.assets = testAssets()[:1]
	second, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.ID() == first.ID() {
		t.Fatalf("second refresh reused snapshot id")
	}
	if _, ok := c.Find("ETH2"); ok {
		t.Fatalf("old assets survived a full replacement")
	}
	if first.Len() != 4 {
		t.Fatalf("previous snapshot was mutated")
	}
}

func TestCache_RefreshFailureKeepsPrevious(t *testing.T) {
	src := &fakeSource{assets: testAssets()}
	c := NewCache(src, time.Second)
	prev, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	src.err = errors.New("boom")
	_, err = c.Refresh(context.Background())
	if !errors.Is(err, ErrDataSource) {
		t.Fatalf("Refresh() error = %v; want ErrDataSource", err)
	}
	var dse *DataSourceError
	if !errors.As(err, &dse) || dse.Source != "fake" {
		t.Fatalf("Refresh() error = %T; want *DataSourceError from fake", err)
	}
	if c.Snapshot() != prev {
		t.Fatalf("failed refresh replaced the snapshot")
	}
	if st := c.Status(); st.LastError == "" || st.Count != 4 {
		t.Fatalf("Status() = %+v; want last error and 4 assets", st)
	}

	src.err = nil
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if st := c.Status(); st.LastError != "" {
		t.Fatalf("successful refresh did not clear last error: %q", st.LastError)
	}
}

func TestCache_RefreshRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		assets []Asset
	}{
		{"empty id", []Asset{{ID: "", Name: "Bitcoin", Symbol: "BTC"}}},
		{"empty symbol", []Asset{{ID: "BTC1", Name: "Bitcoin"}}},
		{"duplicate id", []Asset{{ID: "BTC1", Name: "Bitcoin", Symbol: "BTC"}, {ID: "BTC1", Name: "Bitcoin", Symbol: "BTC"}}},
		{"negative price", []Asset{{ID: "BTC1", Name: "Bitcoin", Symbol: "BTC", Price: -1}}},
		{"nan change", []Asset{{ID: "BTC1", Name: "Bitcoin", Symbol: "BTC", Change24h: math.NaN()}}},
		{"inf volume", []Asset{{ID: "BTC1", Name: "Bitcoin", Symbol: "BTC", Volume24h: math.Inf(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache(&fakeSource{assets: tt.assets}, time.Second)
			_, err := c.Refresh(context.Background())
			if !errors.Is(err, ErrDataSource) || !errors.Is(err, ErrMalformed) {
				t.Fatalf("Refresh() error = %v; want malformed data source error", err)
			}
			if c.Snapshot() != nil {
				t.Fatalf("malformed data was installed")
			}
		})
	}
}

func TestCache_NegativeChangeIsValid(t *testing.T) {
	c := NewCache(&fakeSource{assets: []Asset{{ID: "BTC1", Name: "Bitcoin", Symbol: "BTC", Change24h: -5.5}}}, time.Second)
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
}

func TestCache_RefreshTimeout(t *testing.T) {
	src := &fakeSource{assets: testAssets(), block: make(chan struct{})}
	c := NewCache(src, 20*time.Millisecond)

	_, err := c.Refresh(context.Background())
	if !errors.Is(err, ErrDataSource) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Refresh() error = %v; want data source deadline error", err)
	}
}

func TestCache_OverlappingRefreshRejected(t *testing.T) {
	src := &fakeSource{assets: testAssets(), block: make(chan struct{}), started: make(chan struct{})}
	c := NewCache(src, 5*time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		done <- err
	}()
	<-src.started

	if !c.Status().Refreshing {
		t.Fatalf("Status().Refreshing = false during refresh")
	}
	if _, err := c.Refresh(context.Background()); !errors.Is(err, ErrRefreshInFlight) {
		t.Fatalf("overlapping Refresh() error = %v; want ErrRefreshInFlight", err)
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("source called %d times; want 1", src.calls)
	}
}

func TestCache_ReadersSeePreviousDuringRefresh(t *testing.T) {
	src := &fakeSource{assets: testAssets()}
	c := NewCache(src, 5*time.Second)
	first, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	src.mu.Lock()
	src.assets = []Asset{
		{ID: "BTC1", Name: "Bitcoin", Symbol: "BTC", Rank: 1, Price: 200},
		{ID: "SOL5", Name: "Solana", Symbol: "SOL", Rank: 2, Price: 20},
	}
	src.block = make(chan struct{})
	src.started = make(chan struct{})
	src.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		done <- err
	}()
	<-src.started

	if c.Snapshot() != first {
		t.Fatalf("Snapshot() changed while refresh in flight")
	}
	if a, ok := c.Find("BTC1"); !ok || a.Price != 100 {
		t.Fatalf("Find(BTC1) during refresh = %+v, %v; want previous price 100", a, ok)
	}
	if _, ok := c.Find("SOL5"); ok {
		t.Fatalf("Find(SOL5) saw the pending snapshot")
	}
	if got := c.Filter(""); len(got) != len(testAssets()) {
		t.Fatalf("Filter(\"\") during refresh = %d assets; want %d", len(got), len(testAssets()))
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if c.Snapshot() == first {
		t.Fatalf("Snapshot() not replaced after refresh")
	}
	if a, _ := c.Find("BTC1"); a.Price != 200 {
		t.Fatalf("Find(BTC1) after refresh = %+v; want price 200", a)
	}
	if got := c.Filter("sol"); len(got) != 1 || got[0].ID != "SOL5" {
		t.Fatalf("Filter(sol) after refresh = %+v", got)
	}
}

func TestCache_History(t *testing.T) {
	src := &fakeSource{history: History{Labels: []string{"a", "b"}, Points: []float64{1, 2}}}
	c := NewCache(src, time.Second)

	h, err := c.History(context.Background(), "BTC1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if h.AssetID != "BTC1" || len(h.Points) != 2 {
		t.Fatalf("History() = %+v", h)
	}

	src.history = History{Labels: []string{"a"}, Points: []float64{1, 2}}
	if _, err := c.History(context.Background(), "BTC1"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("History() error = %v; want ErrMalformed", err)
	}

	src.hErr = errors.New("down")
	if _, err := c.History(context.Background(), "BTC1"); !errors.Is(err, ErrDataSource) {
		t.Fatalf("History() error = %v; want ErrDataSource", err)
	}
}
