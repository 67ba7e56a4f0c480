package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stock-dashboard/internal/biz"

	"github.com/shopspring/decimal"
)

// sqliteTradeRepo SQLite 实现的成交仓库
type sqliteTradeRepo struct {
	db *sql.DB
}

// NewSQLiteTradeRepo 创建 SQLite 成交仓库
func NewSQLiteTradeRepo(db *sql.DB) biz.TradeRepo {
	return &sqliteTradeRepo{db: db}
}

func (r *sqliteTradeRepo) SaveTrades(ctx context.Context, trades []biz.Trade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO trades (symbol, price, volume, traded_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx, t.Symbol, t.Price.String(), t.Volume.String(), t.Time.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}
	return tx.Commit()
}

func (r *sqliteTradeRepo) Trades(ctx context.Context, symbol string, limit int) ([]biz.Trade, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT symbol, price, volume, traded_at FROM trades WHERE symbol = ? ORDER BY traded_at DESC, id DESC LIMIT ?",
		symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []biz.Trade{}
	for rows.Next() {
		var (
			t             biz.Trade
			price, volume string
			tradedAt      int64
		)
		if err := rows.Scan(&t.Symbol, &price, &volume, &tradedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad stored price %q: %w", price, err)
		}
		if t.Volume, err = decimal.NewFromString(volume); err != nil {
			return nil, fmt.Errorf("bad stored volume %q: %w", volume, err)
		}
		t.Time = time.UnixMilli(tradedAt).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *sqliteTradeRepo) Close() error {
	return r.db.Close()
}
