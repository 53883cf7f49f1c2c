package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/linchengweiii/crypto-dashboard/internal/market"
)

// ===== Domain =====

// Holding is one owned asset. AvgBuyPrice 0 means the cost basis is unknown.
type Holding struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AvgBuyPrice float64 `json:"avgBuyPrice"`
}

// Result is what mutating operations report back to the presentation layer.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AddInput describes one purchase. PurchasePrice <= 0 or NaN is treated as
// not supplied.
type AddInput struct {
	ID            string
	Name          string
	Symbol        string
	Quantity      float64
	PurchasePrice float64
}

// Row is a holding priced against a snapshot.
type Row struct {
	Holding
	CurrentPrice float64 `json:"currentPrice"`
	CurrentValue float64 `json:"currentValue"`
	Listed       bool    `json:"listed"`
	CostBasis    float64 `json:"costBasis"`
	UnrealizedPL float64 `json:"unrealizedPL"`
}

type Valuation struct {
	Rows       []Row   `json:"rows"`
	TotalValue float64 `json:"totalValue"`
}

// Prices is the read side of a market snapshot.
type Prices interface {
	Find(id string) (market.Asset, bool)
}

// ===== Ports =====

// Repository loads and replaces the whole holding collection.
type Repository interface {
	Load(ctx context.Context) ([]Holding, error)
	Save(ctx context.Context, hs []Holding) error
}

// ===== Errors =====

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
)

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("portfolio %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
