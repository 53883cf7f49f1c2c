package market

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Mock market generator

var (
	mockNames   = []string{"Bitcoin", "Ethereum", "Ripple", "Litecoin", "Cardano", "Polkadot", "Solana", "Dogecoin", "Shiba Inu", "Chainlink", "Avalanche", "Tron", "Monero", "Stellar"}
	mockSymbols = []string{"BTC", "ETH", "XRP", "LTC", "ADA", "DOT", "SOL", "DOGE", "SHIB", "LINK", "AVAX", "TRX", "XMR", "XLM"}
)

const (
	DefaultMockCount = 100
	mockHistoryDays  = 7
)

type MockSource struct {
	count int
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockSource returns a generator of count assets. delay simulates
// network latency; seed 0 seeds from the clock.
func NewMockSource(count int, delay time.Duration, seed uint64) *MockSource {
	if count <= 0 {
		count = DefaultMockCount
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &MockSource{
		count: count,
		delay: delay,
		rng:   rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Assets(ctx context.Context) ([]Asset, error) {
	if err := m.wait(ctx, m.delay); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Asset, 0, m.count)
	for rank := 1; rank <= m.count; rank++ {
		i := m.rng.IntN(len(mockNames))
		base := m.rng.Float64()*70000 + m.rng.Float64()*500
		out = append(out, Asset{
			ID:        fmt.Sprintf("%s%d", mockSymbols[i], rank),
			Name:      mockNames[i],
			Symbol:    mockSymbols[i],
			Rank:      rank,
			Price:     base * (1 + (m.rng.Float64()-0.5)*0.1),
			Change24h: m.rng.Float64()*12 - 6,
			MarketCap: base * (m.rng.Float64()*15000 + 10000),
			Volume24h: base * (m.rng.Float64()*500 + 100),
		})
	}
	return out, nil
}

func (m *MockSource) History(ctx context.Context, id string) (History, error) {
	if err := m.wait(ctx, m.delay*4/5); err != nil {
		return History{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h := History{
		AssetID: id,
		Labels:  make([]string, 0, mockHistoryDays),
		Points:  make([]float64, 0, mockHistoryDays),
	}
	for d := 1; d <= mockHistoryDays; d++ {
		label := fmt.Sprintf("Day %d", d)
		if d == mockHistoryDays {
			label = "Today"
		}
		h.Labels = append(h.Labels, label)
		h.Points = append(h.Points, m.rng.Float64()*50000+10000)
	}
	return h, nil
}

func (m *MockSource) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
