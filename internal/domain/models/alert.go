package models

import "time"

// AlertType enumerates the conditions the alert engine raises.
type AlertType string

const (
	AlertHighGain AlertType = "high_gain"
	AlertHighLoss AlertType = "high_loss"
)

// Severity used by UIs to color the alert.
func (t AlertType) Severity() string {
	if t == AlertHighGain {
		return "success"
	}
	return "warning"
}

// AlertEvent is append-only history. Dedup identity is (UserID, Symbol, Type) within a window.
type AlertEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      int64     `json:"user_id" gorm:"index:idx_alert_lookup,priority:1;not null"`
	Symbol      string    `json:"symbol" gorm:"index:idx_alert_lookup,priority:2;size:16;not null"`
	Type        AlertType `json:"alert_type" gorm:"index:idx_alert_lookup,priority:3;size:16;not null"`
	Message     string    `json:"message" gorm:"type:text"`
	PriceChange float64   `json:"price_change"`
	CreatedAt   time.Time `json:"created_at" gorm:"index;not null"`
}

func (AlertEvent) TableName() string { return "alerts_history" }

// AlertCondition is a threshold crossing found by evaluation, before persistence.
type AlertCondition struct {
	Symbol      string    `json:"symbol"`
	Type        AlertType `json:"alert_type"`
	Message     string    `json:"message"`
	PriceChange float64   `json:"price_change"`
}

// RecordResult is the structured result of offering a condition to the alert store.
type RecordResult struct {
	Persisted bool        `json:"persisted"`
	Reason    string      `json:"reason,omitempty"`
	Event     *AlertEvent `json:"event,omitempty"`
}

// SweepReport summarizes one background sweep.
type SweepReport struct {
	Users      int `json:"users"`
	Symbols    int `json:"symbols"`
	Persisted  int `json:"persisted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Add folds another report into r.
func (r *SweepReport) Add(o SweepReport) {
	r.Users += o.Users
	r.Symbols += o.Symbols
	r.Persisted += o.Persisted
	r.Duplicates += o.Duplicates
	r.Failed += o.Failed
}

// WatchlistItem is unique per (UserID, Symbol).
type WatchlistItem struct {
	ID      uint      `json:"-" gorm:"primaryKey"`
	UserID  int64     `json:"user_id" gorm:"uniqueIndex:idx_watch_user_symbol;not null"`
	Symbol  string    `json:"symbol" gorm:"uniqueIndex:idx_watch_user_symbol;size:16;not null"`
	AddedAt time.Time `json:"added_at" gorm:"autoCreateTime"`
}

func (WatchlistItem) TableName() string { return "watchlist" }

// WatchlistEntry is a watchlist item enriched for display.
type WatchlistEntry struct {
	Symbol       string           `json:"symbol"`
	Name         string           `json:"name"`
	CurrentPrice float64          `json:"current_price"`
	PriceChange  *float64         `json:"price_change"`
	AddedAt      string           `json:"added_at"`
	Alerts       []AlertCondition `json:"alerts"`
}

// WatchlistResult is the structured result of a watchlist mutation.
type WatchlistResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
