package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Harry166/stro/internal/domain/models"
	"github.com/Harry166/stro/internal/domain/repository"
	"github.com/Harry166/stro/pkg/util"
)

// MaxClassifierInput is the longest text, in runes, sent to a classifier.
const MaxClassifierInput = 512

// HTTPSentimentClassifier calls an external FinBERT-style model service.
type HTTPSentimentClassifier struct {
	base *HTTPServiceBase
}

var _ repository.SentimentClassifier = (*HTTPSentimentClassifier)(nil)

// NewHTTPSentimentClassifier makes one attempt per text. A failure falls back
// to the neutral score upstream, so the caller is never held in a retry loop.
func NewHTTPSentimentClassifier(baseURL string, timeout time.Duration) *HTTPSentimentClassifier {
	return &HTTPSentimentClassifier{base: NewHTTPServiceBase(baseURL, timeout, 1)}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *HTTPSentimentClassifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	var resp classifyResponse
	req := classifyRequest{Text: util.TruncateRunes(text, MaxClassifierInput)}
	if err := c.base.PostJSON(ctx, "/classify", req, &resp); err != nil {
		return models.Classification{}, err
	}
	if resp.Score < 0 || resp.Score > 1 {
		return models.Classification{}, fmt.Errorf("classifier confidence out of range: %v", resp.Score)
	}
	return models.Classification{
		Label:      strings.ToLower(strings.TrimSpace(resp.Label)),
		Confidence: resp.Score,
	}, nil
}

var (
	positiveWords = wordSet(
		"beat", "beats", "bullish", "gain", "gains", "growth", "grow", "grows", "higher",
		"jump", "jumps", "outperform", "profit", "profits", "rally", "rallies", "record",
		"rise", "rises", "soar", "soars", "strong", "surge", "surges", "upgrade", "upgraded",
		"win", "wins", "boost", "expands", "optimistic", "positive",
	)
	negativeWords = wordSet(
		"bearish", "crash", "crashes", "cut", "cuts", "decline", "declines", "downgrade",
		"downgraded", "drop", "drops", "fall", "falls", "fraud", "lawsuit", "loss", "losses",
		"lower", "miss", "misses", "plunge", "plunges", "recall", "slump", "slumps", "weak",
		"warning", "layoffs", "probe", "negative", "tumble", "tumbles",
	)
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// LexiconClassifier is an offline word-list classifier used when no model service is configured.
type LexiconClassifier struct{}

var _ repository.SentimentClassifier = LexiconClassifier{}

func NewLexiconClassifier() LexiconClassifier { return LexiconClassifier{} }

// Classify counts positive and negative words. Confidence grows with the margin
// between them and is 0.5 for neutral text.
func (LexiconClassifier) Classify(_ context.Context, text string) (models.Classification, error) {
	text = util.TruncateRunes(text, MaxClassifierInput)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var pos, neg int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 || pos == neg {
		return models.Classification{Label: models.LabelNeutral, Confidence: 0.5}, nil
	}
	margin := float64(pos-neg) / float64(total)
	if margin < 0 {
		margin = -margin
	}
	conf := 0.5 + margin/2
	if pos > neg {
		return models.Classification{Label: models.LabelPositive, Confidence: conf}, nil
	}
	return models.Classification{Label: models.LabelNegative, Confidence: conf}, nil
}
