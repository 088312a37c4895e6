package models

import "time"

// PricePoint is one daily bar of a price history.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is ordered ascending by date. Gaps from the source are kept as-is.
type PriceSeries []PricePoint

// Closes returns the close prices in series order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// Volumes returns the volumes in series order.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Volume
	}
	return out
}

// Last returns the latest point and false when the series is empty.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// InstrumentInfo is the metadata the market data gateway knows about a symbol.
type InstrumentInfo struct {
	Symbol       string  `json:"symbol"`
	DisplayName  string  `json:"display_name"`
	CurrentPrice float64 `json:"current_price"`
	MarketCap    float64 `json:"market_cap"`
	PERatio      float64 `json:"pe_ratio"`
	Industry     string  `json:"industry,omitempty"`
	Exchange     string  `json:"exchange,omitempty"`
}

// Name returns the display name, falling back to the symbol.
func (i *InstrumentInfo) Name() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Symbol
}
