package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDB 打开 SQLite 数据库并建表
func OpenDB(dbPath string) (*sql.DB, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite 不支持多写连接
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// 创建 http_cache 表
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS http_cache (
			key TEXT PRIMARY KEY,
			response BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create http_cache table: %w", err)
	}

	// 创建 trades 表
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			price TEXT NOT NULL,
			volume TEXT NOT NULL,
			traded_at INTEGER NOT NULL,
			received_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create trades table: %w", err)
	}

	// 创建索引
	db.Exec("CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades(symbol, traded_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_http_cache_expires ON http_cache(expires_at)")

	return db, nil
}
