package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/spotbot/pkg/id"
)

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the journal database at path and applies
// the schema. WAL mode keeps journal writes from blocking readers.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite WAL: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordTrade inserts one trade. A missing TradeID gets a fresh ULID so
// rows stay time-sortable by primary key.
func (j *SQLite) RecordTrade(t TradeRecord) error {
	if t.TradeID == "" {
		t.TradeID = id.New()
	}

	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, timestamp_ms, symbol, side, amount, price, fee, pnl, reason, mode, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.TimestampMS, t.Symbol, t.Side, t.Amount,
		t.Price, t.Fee, t.PnL, t.Reason, t.Mode, t.OrderID,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// ListTrades returns trades executed within [start, end), newest last.
// Pass symbol == "" for all symbols.
func (j *SQLite) ListTrades(symbol string, start, end time.Time) ([]TradeRecord, error) {
	query := `
		SELECT trade_id, timestamp_ms, symbol, side, amount, price, fee, pnl, reason, mode, order_id
		FROM trades
		WHERE timestamp_ms >= ? AND timestamp_ms < ?`
	args := []any{start.UnixMilli(), end.UnixMilli()}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY timestamp_ms ASC`

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.TimestampMS,
			&rec.Symbol,
			&rec.Side,
			&rec.Amount,
			&rec.Price,
			&rec.Fee,
			&rec.PnL,
			&rec.Reason,
			&rec.Mode,
			&rec.OrderID,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	var rec TradeRecord

	row := j.db.QueryRow(`
		SELECT trade_id, timestamp_ms, symbol, side, amount, price, fee, pnl, reason, mode, order_id
		FROM trades
		WHERE trade_id = ?`, tradeID)

	err := row.Scan(
		&rec.TradeID,
		&rec.TimestampMS,
		&rec.Symbol,
		&rec.Side,
		&rec.Amount,
		&rec.Price,
		&rec.Fee,
		&rec.PnL,
		&rec.Reason,
		&rec.Mode,
		&rec.OrderID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}
