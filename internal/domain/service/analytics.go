package service

import (
	"context"

	"github.com/Harry166/stro/internal/domain/models"
)

// TrendScorer computes a [0,1] technical score from a price series. Pure.
type TrendScorer interface {
	Score(series models.PriceSeries) models.TrendSignal
}

// SentimentScorer reduces recent news to a [0,1] score. Never fails; degrades to 0.5.
type SentimentScorer interface {
	Sentiment(ctx context.Context, symbol string) models.SentimentSignal
}
