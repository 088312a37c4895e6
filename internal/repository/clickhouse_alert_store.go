package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	pkgch "github.com/Harry166/stro/pkg/clickhouse"
	applogger "github.com/Harry166/stro/pkg/logger"
)

const chAlertTable = "alerts_history"

// ClickHouseAlertSchema returns the DDL for the alert history table.
func ClickHouseAlertSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			id String,
			user_id Int64,
			symbol LowCardinality(String),
			alert_type LowCardinality(String),
			message String,
			price_change Float64,
			created_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree
		ORDER BY (user_id, symbol, created_at)
		TTL toDateTime(created_at) + INTERVAL 180 DAY`, database, chAlertTable),
	}
}

// CHAlertStore is an append-only AlertStore on ClickHouse.
type CHAlertStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.AlertStore = (*CHAlertStore)(nil)

func NewCHAlertStore(ctx context.Context, ch *pkgch.Client, database string, l *applogger.Logger) (*CHAlertStore, error) {
	if err := ch.InitSchema(ctx, ClickHouseAlertSchema(database)); err != nil {
		return nil, err
	}
	return &CHAlertStore{db: ch.DB(), table: database + "." + chAlertTable, l: applogger.Or(l)}, nil
}

func (s *CHAlertStore) Append(ctx context.Context, ev *models.AlertEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, user_id, symbol, alert_type, message, price_change, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		ev.ID, ev.UserID, ev.Symbol, string(ev.Type), ev.Message, ev.PriceChange, ev.CreatedAt.UTC())
	if err != nil {
		s.l.Error("clickhouse append alert",
			applogger.Symbol(ev.Symbol),
			applogger.UserID(ev.UserID),
			applogger.Error(err))
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

func (s *CHAlertStore) Query(ctx context.Context, userID int64, since time.Time, limit int) ([]models.AlertEvent, error) {
	start := time.Now()
	q, args := buildAlertQuery(s.table, userID, since, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []models.AlertEvent
	for rows.Next() {
		var (
			ev  models.AlertEvent
			typ string
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Symbol, &typ, &ev.Message, &ev.PriceChange, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		ev.Type = models.AlertType(typ)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse query alerts",
		applogger.UserID(userID),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration", time.Since(start)))
	return out, nil
}

func buildAlertQuery(table string, userID int64, since time.Time, limit int) (string, []interface{}) {
	var sb strings.Builder
	args := []interface{}{userID}
	fmt.Fprintf(&sb, "SELECT id, user_id, symbol, alert_type, message, price_change, created_at FROM %s WHERE user_id = ?", table)
	if !since.IsZero() {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, since.UTC())
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return sb.String(), args
}
