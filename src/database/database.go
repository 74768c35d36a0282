package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/cryptofolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the sqlite database and ensures the schema exists. The seq
// column on events preserves arrival order, which is the tie-breaker for
// same-date events during replay.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		price_currency TEXT,
		fee_amount TEXT NOT NULL,
		fee_currency TEXT,
		platform TEXT,
		description TEXT,
		tx_hash TEXT,
		hash_id TEXT NOT NULL UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_events_asset_date ON events(asset, date);

	CREATE TABLE IF NOT EXISTS rate_cache (
		currency TEXT NOT NULL,
		date TEXT NOT NULL,
		rate TEXT NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (currency, date)
	);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}
