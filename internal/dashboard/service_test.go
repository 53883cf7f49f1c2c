package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linchengweiii/crypto-dashboard/internal/market"
	"github.com/linchengweiii/crypto-dashboard/internal/portfolio"
	"github.com/linchengweiii/crypto-dashboard/internal/stream"
)

type stubSource struct {
	mu      sync.Mutex
	assets  []market.Asset
	err     error
	histErr error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Assets(ctx context.Context) ([]market.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets, s.err
}

func (s *stubSource) History(ctx context.Context, id string) (market.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.histErr != nil {
		return market.History{}, s.histErr
	}
	return market.History{Labels: []string{"Day 1", "Today"}, Points: []float64{1, 2}}, nil
}

func (s *stubSource) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []stream.Event
}

func (r *recorder) Publish(e stream.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return 1
}

func (r *recorder) types() []stream.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stream.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() stream.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestService(t *testing.T) (*Service, *stubSource, *recorder) {
	t.Helper()
	src := &stubSource{assets: []market.Asset{
		{ID: "ETH2", Name: "Ethereum", Symbol: "ETH", Rank: 2, Price: 50},
		{ID: "BTC1", Name: "Bitcoin", Symbol: "BTC", Rank: 1, Price: 100},
	}}
	rec := &recorder{}
	svc := NewService(market.NewCache(src, time.Second), portfolio.NewLedger(portfolio.NewMemoryRepo()), rec)
	return svc, src, rec
}

func TestService_RefreshPublishes(t *testing.T) {
	svc, _, rec := newTestService(t)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	got := rec.types()
	if len(got) != 2 || got[0] != stream.EventMarket || got[1] != stream.EventPortfolio {
		t.Fatalf("events = %v; want market, portfolio", got)
	}
	mv := svc.Market("")
	if mv.Source != "stub" || len(mv.Assets) != 2 || mv.SnapshotID == "" {
		t.Fatalf("Market() = %+v", mv)
	}
	if got := svc.Market(" bit ").Assets; len(got) != 1 || got[0].ID != "BTC1" {
		t.Fatalf("Market(bit) = %+v", got)
	}
}

func TestService_RefreshFailureKeepsStale(t *testing.T) {
	svc, src, rec := newTestService(t)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	src.fail(errors.New("API Error: 503"))
	err := svc.Refresh(context.Background())
	if !errors.Is(err, market.ErrDataSource) {
		t.Fatalf("Refresh() error = %v; want ErrDataSource", err)
	}
	e := rec.last()
	if e.Type != stream.EventError || !strings.HasPrefix(e.Message, "Failed to load market data. ") || !strings.Contains(e.Message, "503") {
		t.Fatalf("error event = %+v", e)
	}
	if len(svc.Market("").Assets) != 2 {
		t.Fatalf("stale snapshot was dropped")
	}
}

func TestService_AddFillsNameFromSnapshot(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	res, err := svc.AddHolding(ctx, AddRequest{ID: "BTC1", Quantity: 2, PurchasePrice: 80})
	if err != nil || res.Message != "BTC holding added." {
		t.Fatalf("AddHolding() = %+v, %v", res, err)
	}
	if rec.last().Type != stream.EventPortfolio {
		t.Fatalf("AddHolding() did not publish a portfolio event")
	}

	pv, err := svc.Portfolio(ctx)
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}
	if len(pv.Rows) != 1 || pv.Rows[0].Name != "Bitcoin" || pv.TotalValue != 200 {
		t.Fatalf("Portfolio() = %+v", pv)
	}
	if len(pv.Options) != 2 || pv.Options[0].Name != "Bitcoin" {
		t.Fatalf("options not sorted by name: %+v", pv.Options)
	}
}

func TestService_AddUnknownWithoutNameIsInvalid(t *testing.T) {
	svc, _, rec := newTestService(t)
	res, err := svc.AddHolding(context.Background(), AddRequest{ID: "NOPE1", Quantity: 1})
	if !errors.Is(err, portfolio.ErrInvalidInput) || res.Success {
		t.Fatalf("AddHolding() = %+v, %v; want invalid input", res, err)
	}
	if len(rec.types()) != 0 {
		t.Fatalf("invalid add published events")
	}
}

func TestService_Remove(t *testing.T) {
	svc, _, _ := newTestService(t)
	res, err := svc.RemoveHolding(context.Background(), "XRP9")
	if err != nil || !res.Success || res.Message != "Holding removed." {
		t.Fatalf("RemoveHolding() = %+v, %v", res, err)
	}
}

func TestService_Coin(t *testing.T) {
	svc, src, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if _, err := svc.Coin(ctx, "XRP9"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("Coin(unknown) error = %v; want ErrAssetNotFound", err)
	}

	cv, err := svc.Coin(ctx, "ETH2")
	if err != nil || cv.History == nil || len(cv.History.Points) != 2 {
		t.Fatalf("Coin() = %+v, %v", cv, err)
	}

	src.mu.Lock()
	src.histErr = errors.New("down")
	src.mu.Unlock()
	cv, err = svc.Coin(ctx, "ETH2")
	if err != nil || cv.History != nil || cv.HistoryError != "Could not load chart data." || cv.Asset.Symbol != "ETH" {
		t.Fatalf("Coin() with failing history = %+v, %v", cv, err)
	}
}

func TestService_RunRefreshesOnTick(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		markets := 0
		for _, typ := range rec.types() {
			if typ == stream.EventMarket {
				markets++
			}
		}
		if markets >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Run() produced %d market events; want at least 2", markets)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
