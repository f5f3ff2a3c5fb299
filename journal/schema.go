package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	timestamp_ms INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	amount REAL NOT NULL,
	price REAL NOT NULL,
	fee REAL NOT NULL,
	pnl REAL NOT NULL,
	reason TEXT NOT NULL,
	mode TEXT NOT NULL,
	order_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
`
