package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
)

const (
	msgInvalidInput = "Invalid input data."
	msgRemoved      = "Holding removed."
)

// Ledger owns the holding collection. Every mutation loads the stored
// collection, edits a copy and saves it back whole.
type Ledger struct {
	repo Repository
	mu   sync.Mutex
}

func NewLedger(r Repository) *Ledger {
	return &Ledger{repo: r}
}

func (l *Ledger) Holdings(ctx context.Context) ([]Holding, error) {
	hs, err := l.repo.Load(ctx)
	if err != nil {
		return nil, persistErr("load", err)
	}
	return hs, nil
}

func (l *Ledger) AddHolding(ctx context.Context, in AddInput) (Result, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Symbol = strings.TrimSpace(in.Symbol)
	if err := in.validate(); err != nil {
		return Result{Success: false, Message: msgInvalidInput}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hs, err := l.repo.Load(ctx)
	if err != nil {
		return Result{}, persistErr("load", err)
	}
	next := slices.Clone(hs)

	price, priced := in.price()
	verb := "added"
	if i := slices.IndexFunc(next, func(h Holding) bool { return h.ID == in.ID }); i >= 0 {
		h := &next[i]
		newCost := 0.0
		if priced {
			newCost = price * in.Quantity
		}
		oldQty := h.Quantity
		h.Quantity = oldQty + in.Quantity
		if newCost > 0 {
			h.AvgBuyPrice = (h.AvgBuyPrice*oldQty + newCost) / h.Quantity
		}
		if !finite(h.Quantity) || !finite(h.AvgBuyPrice) {
			return Result{Success: false, Message: msgInvalidInput},
				fmt.Errorf("%w: holding %s overflows", ErrInvalidInput, in.ID)
		}
		verb = "updated"
	} else {
		next = append(next, Holding{
			ID:          in.ID,
			Name:        in.Name,
			Symbol:      in.Symbol,
			Quantity:    in.Quantity,
			AvgBuyPrice: price,
		})
	}

	if err := l.repo.Save(ctx, next); err != nil {
		return Result{}, persistErr("save", err)
	}
	slog.Debug("holding "+verb, "id", in.ID, "qty", in.Quantity, "price", price)
	return Result{Success: true, Message: fmt.Sprintf("%s holding %s.", in.Symbol, verb)}, nil
}

// RemoveHolding deletes the holding with id. Removing an unknown id succeeds.
func (l *Ledger) RemoveHolding(ctx context.Context, id string) (Result, error) {
	id = strings.TrimSpace(id)

	l.mu.Lock()
	defer l.mu.Unlock()

	hs, err := l.repo.Load(ctx)
	if err != nil {
		return Result{}, persistErr("load", err)
	}
	next := slices.DeleteFunc(slices.Clone(hs), func(h Holding) bool { return h.ID == id })
	if err := l.repo.Save(ctx, next); err != nil {
		return Result{}, persistErr("save", err)
	}
	return Result{Success: true, Message: msgRemoved}, nil
}

// Valuate prices every holding against p in stored order. Holdings missing
// from p are delisted and contribute zero.
func (l *Ledger) Valuate(ctx context.Context, p Prices) (Valuation, error) {
	hs, err := l.Holdings(ctx)
	if err != nil {
		return Valuation{}, err
	}
	return Value(hs, p), nil
}

// Value is the pure join behind Valuate.
func Value(hs []Holding, p Prices) Valuation {
	v := Valuation{Rows: make([]Row, 0, len(hs))}
	for _, h := range hs {
		r := Row{Holding: h, CostBasis: h.Quantity * h.AvgBuyPrice}
		if p != nil {
			if a, ok := p.Find(h.ID); ok {
				r.Listed = true
				r.CurrentPrice = a.Price
				r.CurrentValue = h.Quantity * a.Price
			}
		}
		if r.Listed && h.AvgBuyPrice > 0 {
			r.UnrealizedPL = r.CurrentValue - r.CostBasis
		}
		v.TotalValue += r.CurrentValue
		v.Rows = append(v.Rows, r)
	}
	return v
}

/* ======================== small helpers ======================== */

func (in AddInput) validate() error {
	switch {
	case in.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	case math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) || in.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be a positive number", ErrInvalidInput)
	}
	return nil
}

// price reports the purchase price and whether one was supplied.
func (in AddInput) price() (float64, bool) {
	p := in.PurchasePrice
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}
	return p, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
