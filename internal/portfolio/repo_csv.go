package portfolio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

/*
CSV layout

holdings.csv
id,name,symbol,quantity,avg_buy_price

Notes:
- rows are kept in insertion order
- floats are written with the shortest exact representation
- the file is rewritten atomically on every Save
*/

var csvHeader = []string{"id", "name", "symbol", "quantity", "avg_buy_price"}

type CSVRepo struct {
	path string
	mu   sync.Mutex
}

func NewCSVRepo(dir string) (*CSVRepo, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	r := &CSVRepo{path: filepath.Join(dir, "holdings.csv")}
	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err := atomicWriteCSV(r.path, [][]string{csvHeader}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *CSVRepo) Load(ctx context.Context) ([]Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Holding{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]Holding, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < len(csvHeader) {
			return nil, fmt.Errorf("holdings.csv line %d: want %d fields, got %d", i+1, len(csvHeader), len(row))
		}
		qty, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("holdings.csv line %d quantity: %w", i+1, err)
		}
		avg, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("holdings.csv line %d avg_buy_price: %w", i+1, err)
		}
		out = append(out, Holding{ID: row[0], Name: row[1], Symbol: row[2], Quantity: qty, AvgBuyPrice: avg})
	}
	return out, nil
}

func (r *CSVRepo) Save(ctx context.Context, hs []Holding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([][]string, 0, len(hs)+1)
	rows = append(rows, csvHeader)
	for _, h := range hs {
		rows = append(rows, []string{
			h.ID,
			h.Name,
			h.Symbol,
			strconv.FormatFloat(h.Quantity, 'g', -1, 64),
			strconv.FormatFloat(h.AvgBuyPrice, 'g', -1, 64),
		})
	}
	return atomicWriteCSV(r.path, rows)
}

func atomicWriteCSV(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-*.csv")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
