package analytics

import (
	"fmt"
	"strings"
)

// Blend weights. Ranking favours price action; the single-stock outlook weighs both equally.
const (
	RankSentimentWeight = 0.4
	RankTrendWeight     = 0.6
	OutlookWeight       = 0.5
)

// RankScore is the composite used to order the trending list.
func RankScore(sentiment, trend float64) float64 {
	return RankSentimentWeight*sentiment + RankTrendWeight*trend
}

// OutlookScore is the composite shown on a single stock page.
func OutlookScore(sentiment, trend float64) float64 {
	return OutlookWeight*sentiment + OutlookWeight*trend
}

// Advise renders the outlook text for a symbol. Deterministic.
func Advise(symbol string, sentiment, trend float64) string {
	parts := []string{sentimentLine(symbol, sentiment), trendLine(trend), overallLine(OutlookScore(sentiment, trend))}
	return strings.Join(parts, " ")
}

func sentimentLine(symbol string, s float64) string {
	switch {
	case s > 0.7:
		return fmt.Sprintf("News coverage of %s is very positive, pointing to strong market confidence.", symbol)
	case s > 0.55:
		return fmt.Sprintf("News coverage of %s leans positive.", symbol)
	case s < 0.3:
		return fmt.Sprintf("News coverage of %s is negative, which points to concerns in the market.", symbol)
	case s < 0.45:
		return fmt.Sprintf("News coverage of %s leans negative, suggesting some uncertainty.", symbol)
	default:
		return fmt.Sprintf("News coverage of %s is neutral.", symbol)
	}
}

func trendLine(t float64) string {
	switch {
	case t > 0.7:
		return "Price is above its key moving averages with strong upward momentum."
	case t > 0.55:
		return "Technicals are positive with moderate buying pressure."
	case t < 0.3:
		return "Technicals are bearish with downward price pressure."
	case t < 0.45:
		return "Technicals are weak with price below support."
	default:
		return "Technicals are mixed, consistent with consolidation."
	}
}

func overallLine(combined float64) string {
	switch {
	case combined > 0.65:
		return "Overall outlook: bullish."
	case combined < 0.35:
		return "Overall outlook: bearish. Consider risk management."
	default:
		return "Overall outlook: mixed. Watch for a clearer direction."
	}
}
