package portfolio

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
    CREATE TABLE IF NOT EXISTS portfolio_holdings (
        storage_key   TEXT             NOT NULL,
        id            TEXT             NOT NULL,
        position      INTEGER          NOT NULL,
        name          TEXT             NOT NULL,
        symbol        TEXT             NOT NULL,
        quantity      DOUBLE PRECISION NOT NULL,
        avg_buy_price DOUBLE PRECISION NOT NULL DEFAULT 0,
        PRIMARY KEY (storage_key, id)
    )
`

// PGRepo keeps the collection in portfolio_holdings, one row per holding.
type PGRepo struct {
	db  *pgxpool.Pool
	key string
}

func NewPGRepo(db *pgxpool.Pool) *PGRepo {
	return &PGRepo{db: db, key: StorageKey}
}

func (r *PGRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.db.Exec(ctx, schemaSQL)
	return err
}

func (r *PGRepo) Load(ctx context.Context) ([]Holding, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `
        SELECT id, name, symbol, quantity, avg_buy_price
        FROM portfolio_holdings
        WHERE storage_key = $1
        ORDER BY position
    `, r.key)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Holding, error) {
		var h Holding
		err := row.Scan(&h.ID, &h.Name, &h.Symbol, &h.Quantity, &h.AvgBuyPrice)
		return h, err
	})
}

// Save replaces the stored collection inside one transaction.
func (r *PGRepo) Save(ctx context.Context, hs []Holding) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM portfolio_holdings WHERE storage_key = $1`, r.key); err != nil {
			return err
		}
		if len(hs) == 0 {
			return nil
		}
		const insertSQL = `
            INSERT INTO portfolio_holdings (
                storage_key, id, position, name, symbol, quantity, avg_buy_price
            )
            VALUES ($1,$2,$3,$4,$5,$6,$7)
        `
		b := &pgx.Batch{}
		for i, h := range hs {
			b.Queue(insertSQL, r.key, h.ID, i, h.Name, h.Symbol, h.Quantity, h.AvgBuyPrice)
		}
		return tx.SendBatch(ctx, b).Close()
	})
}
