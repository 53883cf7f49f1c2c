// Package dashboard ties the market cache, the portfolio ledger and the
// event stream together.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linchengweiii/crypto-dashboard/internal/market"
	"github.com/linchengweiii/crypto-dashboard/internal/portfolio"
	"github.com/linchengweiii/crypto-dashboard/internal/stream"
)

const (
	DefaultInterval = 60 * time.Second

	msgMarketFailed = "Failed to load market data."
	msgChartFailed  = "Could not load chart data."
)

var ErrAssetNotFound = errors.New("asset not found")

// Publisher receives dashboard events. *stream.Hub implements it.
type Publisher interface {
	Publish(e stream.Event) int
}

type Service struct {
	cache  *market.Cache
	ledger *portfolio.Ledger
	pub    Publisher
}

func NewService(cache *market.Cache, ledger *portfolio.Ledger, pub Publisher) *Service {
	return &Service{cache: cache, ledger: ledger, pub: pub}
}

// ===== Views =====

type MarketView struct {
	SnapshotID string         `json:"snapshotId"`
	Source     string         `json:"source"`
	FetchedAt  time.Time      `json:"fetchedAt"`
	Query      string         `json:"query,omitempty"`
	Assets     []market.Asset `json:"assets"`
	Status     market.Status  `json:"status"`
}

type CoinView struct {
	Asset        market.Asset    `json:"asset"`
	History      *market.History `json:"history,omitempty"`
	HistoryError string          `json:"historyError,omitempty"`
}

type PortfolioView struct {
	portfolio.Valuation
	SnapshotID string         `json:"snapshotId"`
	Options    []market.Asset `json:"options"`
}

// ===== Refresh cycle =====

// Refresh reloads the market and re-values the portfolio. When another
// refresh is running it returns market.ErrRefreshInFlight and publishes
// nothing.
func (s *Service) Refresh(ctx context.Context) error {
	snap, err := s.cache.Refresh(ctx)
	if errors.Is(err, market.ErrRefreshInFlight) {
		slog.Debug("refresh skipped, one already in flight")
		return err
	}
	if err != nil {
		slog.Error("market refresh failed", "error", err)
		s.publish(stream.Event{Type: stream.EventError, Message: fmt.Sprintf("%s %v", msgMarketFailed, err)})
		return err
	}
	s.publish(stream.Event{Type: stream.EventMarket, Data: s.marketView(snap, "")})

	pv, err := s.portfolioView(ctx, snap)
	if err != nil {
		slog.Error("portfolio valuation failed", "error", err)
		s.publish(stream.Event{Type: stream.EventError, Message: err.Error()})
		return err
	}
	s.publish(stream.Event{Type: stream.EventPortfolio, Data: pv})
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	_ = s.Refresh(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.Refresh(ctx)
		}
	}
}

// ===== Reads =====

func (s *Service) Market(query string) MarketView {
	return s.marketView(s.cache.Snapshot(), query)
}

func (s *Service) Coin(ctx context.Context, id string) (CoinView, error) {
	a, ok := s.cache.Find(id)
	if !ok {
		return CoinView{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	v := CoinView{Asset: a}
	h, err := s.cache.History(ctx, id)
	if err != nil {
		slog.Warn("history unavailable", "id", id, "error", err)
		v.HistoryError = msgChartFailed
		return v, nil
	}
	v.History = &h
	return v, nil
}

func (s *Service) Portfolio(ctx context.Context) (PortfolioView, error) {
	return s.portfolioView(ctx, s.cache.Snapshot())
}

// Options lists the coins that can be added, sorted by name.
func (s *Service) Options() []market.Asset {
	return s.cache.SortedByName()
}

func (s *Service) Status() market.Status {
	return s.cache.Status()
}

// ===== Mutations =====

// AddRequest is a holding purchase. Name and Symbol default to the asset's
// values in the current snapshot.
type AddRequest struct {
	ID            string
	Name          string
	Symbol        string
	Quantity      float64
	PurchasePrice float64
}

func (s *Service) AddHolding(ctx context.Context, req AddRequest) (portfolio.Result, error) {
	id := strings.TrimSpace(req.ID)
	if a, ok := s.cache.Find(id); ok {
		if strings.TrimSpace(req.Name) == "" {
			req.Name = a.Name
		}
		if strings.TrimSpace(req.Symbol) == "" {
			req.Symbol = a.Symbol
		}
	}
	res, err := s.ledger.AddHolding(ctx, portfolio.AddInput{
		ID:            id,
		Name:          req.Name,
		Symbol:        req.Symbol,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
	})
	if err != nil {
		return res, err
	}
	s.publishPortfolio(ctx)
	return res, nil
}

func (s *Service) RemoveHolding(ctx context.Context, id string) (portfolio.Result, error) {
	res, err := s.ledger.RemoveHolding(ctx, id)
	if err != nil {
		return res, err
	}
	s.publishPortfolio(ctx)
	return res, nil
}

/* ======================== small helpers ======================== */

func (s *Service) marketView(snap *market.Snapshot, query string) MarketView {
	query = strings.TrimSpace(query)
	return MarketView{
		SnapshotID: snap.ID(),
		Source:     snap.Source(),
		FetchedAt:  snap.FetchedAt(),
		Query:      query,
		Assets:     snap.Filter(query),
		Status:     s.cache.Status(),
	}
}

func (s *Service) portfolioView(ctx context.Context, snap *market.Snapshot) (PortfolioView, error) {
	v, err := s.ledger.Valuate(ctx, snap)
	if err != nil {
		return PortfolioView{}, err
	}
	return PortfolioView{Valuation: v, SnapshotID: snap.ID(), Options: snap.SortedByName()}, nil
}

func (s *Service) publishPortfolio(ctx context.Context) {
	pv, err := s.Portfolio(ctx)
	if err != nil {
		slog.Warn("portfolio event skipped", "error", err)
		return
	}
	s.publish(stream.Event{Type: stream.EventPortfolio, Data: pv})
}

func (s *Service) publish(e stream.Event) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(e)
}
