package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	applogger "github.com/Harry166/stro/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS watchlist (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	added_at INTEGER NOT NULL,
	UNIQUE(user_id, symbol)
);

CREATE TABLE IF NOT EXISTS alerts_history (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	alert_type TEXT NOT NULL,
	message TEXT NOT NULL,
	price_change REAL NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_user_time ON alerts_history(user_id, created_at);
`

// SQLStore keeps the watchlist and alert history in SQLite.
// Timestamps are stored as unix nanoseconds.
type SQLStore struct {
	db  *sql.DB
	l   *applogger.Logger
	now func() time.Time
}

var (
	_ domrepo.WatchlistStore = (*SQLStore)(nil)
	_ domrepo.AlertStore     = (*SQLStore)(nil)
)

func NewSQLStore(ctx context.Context, path string, l *applogger.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// one writer; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLStore{db: db, l: applogger.Or(l), now: time.Now}, nil
}

// SetClock overrides the clock used for added_at.
func (s *SQLStore) SetClock(now func() time.Time) { s.now = now }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) List(ctx context.Context, userID int64) ([]models.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, symbol, added_at FROM watchlist WHERE user_id = ? ORDER BY added_at ASC, id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var out []models.WatchlistItem
	for rows.Next() {
		var (
			it    models.WatchlistItem
			added int64
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.Symbol, &added); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		it.AddedAt = time.Unix(0, added).UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLStore) Add(ctx context.Context, userID int64, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (user_id, symbol, added_at) VALUES (?, ?, ?)`,
		userID, symbol, s.now().UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return domrepo.ErrDuplicate
		}
		return fmt.Errorf("add watchlist: %w", err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, userID int64, symbol string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("remove watchlist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove watchlist: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) Users(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM watchlist ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) Append(ctx context.Context, ev *models.AlertEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts_history (id, user_id, symbol, alert_type, message, price_change, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.Symbol, string(ev.Type), ev.Message, ev.PriceChange, ev.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return domrepo.ErrDuplicate
		}
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

func (s *SQLStore) Query(ctx context.Context, userID int64, since time.Time, limit int) ([]models.AlertEvent, error) {
	var (
		sb   strings.Builder
		args = []interface{}{userID}
	)
	sb.WriteString(`SELECT id, user_id, symbol, alert_type, message, price_change, created_at
		FROM alerts_history WHERE user_id = ?`)
	if !since.IsZero() {
		sb.WriteString(` AND created_at >= ?`)
		args = append(args, since.UnixNano())
	}
	sb.WriteString(` ORDER BY created_at DESC`)
	if limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []models.AlertEvent
	for rows.Next() {
		var (
			ev      models.AlertEvent
			typ     string
			created int64
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Symbol, &typ, &ev.Message, &ev.PriceChange, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		ev.Type = models.AlertType(typ)
		ev.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
