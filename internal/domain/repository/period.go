package repository

import "time"

// Period is a history lookback understood by the market data gateway.
type Period string

const (
	Period1Mo Period = "1mo"
	Period3Mo Period = "3mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
)

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period1Mo, Period3Mo, Period6Mo, Period1Y:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default period.
func DefaultPeriod() Period { return Period3Mo }

// NormalizePeriod converts raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	if s == "" {
		return DefaultPeriod()
	}
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

// Start returns the first day covered by p when looking back from now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case Period1Mo:
		return now.AddDate(0, -1, 0)
	case Period6Mo:
		return now.AddDate(0, -6, 0)
	case Period1Y:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -3, 0)
	}
}
