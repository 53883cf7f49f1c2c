package market

import (
	"context"
	"errors"
	"fmt"
)

// ===== Domain =====

// Asset is one tradable instrument as reported by the data source.
type Asset struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Rank      int     `json:"rank"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	MarketCap float64 `json:"marketCap"`
	Volume24h float64 `json:"volume24h"`
}

// History is a price series for one asset, labels and points are parallel.
type History struct {
	AssetID string    `json:"assetId"`
	Labels  []string  `json:"labels"`
	Points  []float64 `json:"points"`
}

// ===== Ports =====

// Source produces market data. Implementations must be safe for concurrent use.
type Source interface {
	Name() string
	Assets(ctx context.Context) ([]Asset, error)
	History(ctx context.Context, id string) (History, error)
}

// ===== Errors =====

var (
	ErrDataSource      = errors.New("data source error")
	ErrMalformed       = errors.New("malformed market data")
	ErrRefreshInFlight = errors.New("market refresh already in progress")
)

// DataSourceError reports a failed or malformed source call.
type DataSourceError struct {
	Source string
	Op     string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

func (e *DataSourceError) Is(target error) bool { return target == ErrDataSource }
