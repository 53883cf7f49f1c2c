package market

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMockSource_Assets(t *testing.T) {
	m := NewMockSource(25, 0, 42)
	assets, err := m.Assets(context.Background())
	if err != nil {
		t.Fatalf("Assets() error = %v", err)
	}
	if len(assets) != 25 {
		t.Fatalf("Assets() returned %d; want 25", len(assets))
	}
	if err := validateAssets(assets); err != nil {
		t.Fatalf("mock produced invalid data: %v", err)
	}
	for i, a := range assets {
		if a.Rank != i+1 {
			t.Errorf("asset %d rank = %d", i, a.Rank)
		}
		if want := fmt.Sprintf("%s%d", a.Symbol, a.Rank); a.ID != want {
			t.Errorf("asset id = %q; want %q", a.ID, want)
		}
		if a.Change24h < -6 || a.Change24h >= 6 {
			t.Errorf("change24h %v out of range", a.Change24h)
		}
		if a.Price < 0 || a.Price > 70500*1.05 {
			t.Errorf("price %v out of range", a.Price)
		}
	}
}

func TestMockSource_SeedIsDeterministic(t *testing.T) {
	a, _ := NewMockSource(5, 0, 7).Assets(context.Background())
	b, _ := NewMockSource(5, 0, 7).Assets(context.Background())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different assets at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMockSource_History(t *testing.T) {
	h, err := NewMockSource(1, 0, 1).History(context.Background(), "BTC1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	wantLabels := []string{"Day 1", "Day 2", "Day 3", "Day 4", "Day 5", "Day 6", "Today"}
	if len(h.Labels) != len(wantLabels) || len(h.Points) != len(wantLabels) {
		t.Fatalf("History() = %+v", h)
	}
	for i, l := range wantLabels {
		if h.Labels[i] != l {
			t.Errorf("label %d = %q; want %q", i, h.Labels[i], l)
		}
		if p := h.Points[i]; p < 10000 || p >= 60000 {
			t.Errorf("point %d = %v out of range", i, p)
		}
	}
}

func TestMockSource_DelayHonoursContext(t *testing.T) {
	m := NewMockSource(1, time.Hour, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Assets(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Assets() error = %v; want deadline exceeded", err)
	}
}
