package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type SymbolRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,ticker"`
}

type TrendRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,ticker"`
	Period string `query:"period" json:"period" default:"3mo" validate:"oneof=1mo 3mo 6mo 1y"`
}

// RefreshRequest with no symbols rebuilds the published ranking; with
// symbols it ranks them ad hoc without touching the snapshot.
type RefreshRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,max=100,dive,required,ticker"`
}

type WatchlistRequest struct {
	UserID int64  `param:"user_id" json:"user_id" validate:"required,gte=1"`
	Symbol string `param:"symbol" json:"symbol" validate:"required,ticker"`
}

type UserRequest struct {
	UserID int64 `param:"user_id" json:"user_id" validate:"required,gte=1"`
}

type AlertHistoryRequest struct {
	UserID int64 `param:"user_id" json:"user_id" validate:"required,gte=1"`
	Hours  int   `query:"hours" json:"hours" default:"24" validate:"gte=1,lte=720"`
}
