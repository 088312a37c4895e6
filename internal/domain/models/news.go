package models

import "time"

// Article is a normalized news item as cached by the sentiment aggregator.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

// NewsQuery describes a provider search.
type NewsQuery struct {
	Query    string
	From     time.Time
	Language string
	SortBy   string
	PageSize int
}

// Sentiment labels returned by a classifier.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Classification is the output of a sentiment classifier for one text.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
