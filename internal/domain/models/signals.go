package models

import "time"

// NeutralScore is used whenever a signal cannot be computed.
const NeutralScore = 0.5

// TrendInputs are the indicator values a trend score was derived from.
// A nil value means there was not enough history to compute it.
type TrendInputs struct {
	MA20        *float64 `json:"ma20"`
	MA50        *float64 `json:"ma50"`
	RSI         *float64 `json:"rsi"`
	VolumeRatio *float64 `json:"volume_ratio"`
}

// TrendSignal is recomputed per request and never persisted.
type TrendSignal struct {
	Score  float64     `json:"score"`
	Inputs TrendInputs `json:"inputs"`
}

// SentimentSignal: 0 = very negative, 1 = very positive, 0.5 = neutral or unknown.
type SentimentSignal struct {
	Score      float64 `json:"score"`
	Articles   int     `json:"articles"`
	Classified int     `json:"classified"`
	Source     string  `json:"source"` // cache, stale, provider, default
}

// Sentiment sources.
const (
	SourceCache    = "cache"
	SourceStale    = "stale"
	SourceProvider = "provider"
	SourceDefault  = "default"
)

// RankedInstrument is one entry of the trending list.
type RankedInstrument struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	Score        float64 `json:"score"`
	Sentiment    float64 `json:"sentiment"`
	Trend        float64 `json:"trend"`
}

// RankingSnapshot is immutable once published.
type RankingSnapshot struct {
	Version     uint64             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Items       []RankedInstrument `json:"items"`
}

// Outlook is the single-instrument blend shown on the stock page.
type Outlook struct {
	Symbol     string  `json:"symbol"`
	Sentiment  float64 `json:"sentiment"`
	Trend      float64 `json:"trend"`
	Prediction float64 `json:"prediction"`
	Analysis   string  `json:"analysis"`
}

// StockAnalysis is the stock detail view.
type StockAnalysis struct {
	Info        *InstrumentInfo `json:"info"`
	PriceChange *float64        `json:"price_change"`
	Sentiment   SentimentSignal `json:"sentiment"`
	Trend       TrendSignal     `json:"trend"`
	Chart       PriceSeries     `json:"chart"`
	News        []Article       `json:"news"`
}
