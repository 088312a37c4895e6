package analytics

import (
	"github.com/Harry166/stro/internal/domain/models"
	domsvc "github.com/Harry166/stro/internal/domain/service"
	"github.com/Harry166/stro/internal/services/features"
)

// Rule weights in hundredths so the sum stays exact.
const (
	weightAboveMA20   = 30
	weightAboveMA50   = 20
	weightCrossover   = 20
	weightRSIHealthy  = 20
	weightRSIOversold = 10
	weightVolumeSurge = 10
	weightCap         = 100

	rsiPeriod        = 14
	volumeWindow     = 5
	volumeSurgeRatio = 1.2
)

// TrendScorer turns a price series into a [0,1] technical score.
// It is pure; callers substitute 0.5 when the history itself cannot be fetched.
type TrendScorer struct{}

func NewTrendScorer() *TrendScorer { return &TrendScorer{} }

func (TrendScorer) Score(series models.PriceSeries) models.TrendSignal {
	if len(series) == 0 {
		return models.TrendSignal{Score: models.NeutralScore}
	}

	closes := series.Closes()
	last := closes[len(closes)-1]

	var in models.TrendInputs
	points := 0

	ma20, ok20 := features.SMA(closes, 20)
	if ok20 {
		in.MA20 = &ma20
		if last > ma20 {
			points += weightAboveMA20
		}
	}
	ma50, ok50 := features.SMA(closes, 50)
	if ok50 {
		in.MA50 = &ma50
		if last > ma50 {
			points += weightAboveMA50
		}
	}
	if ok20 && ok50 && ma20 > ma50 {
		points += weightCrossover
	}

	if rsi, ok := features.RSI(closes, rsiPeriod); ok {
		in.RSI = &rsi
		switch {
		case rsi > 40 && rsi < 70:
			points += weightRSIHealthy
		case rsi < 30:
			points += weightRSIOversold
		}
	}

	if ratio, ok := features.VolumeRatio(series.Volumes(), volumeWindow); ok {
		in.VolumeRatio = &ratio
		if ratio > volumeSurgeRatio {
			points += weightVolumeSurge
		}
	}

	if points > weightCap {
		points = weightCap
	}
	return models.TrendSignal{Score: float64(points) / 100, Inputs: in}
}

var _ domsvc.TrendScorer = (*TrendScorer)(nil)
