package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Harry166/stro/internal/domain/models"
	drepo "github.com/Harry166/stro/internal/domain/repository"
	xhttp "github.com/Harry166/stro/pkg/http"
	applogger "github.com/Harry166/stro/pkg/logger"
	"github.com/Harry166/stro/pkg/util"
)

// Client implements MarketData on top of the Finnhub REST API.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *xhttp.Client
	now     func() time.Time
	l       *applogger.Logger
}

var _ drepo.MarketData = (*Client)(nil)

// Option configures Client.
type Option func(*Client)

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func WithLogger(l *applogger.Logger) Option { return func(c *Client) { c.l = l } }

// New creates a Finnhub gateway. timeout bounds every upstream call.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.l = applogger.Or(c.l)
	return c
}

type candleResponse struct {
	Close     []float64 `json:"c"`
	Volume    []float64 `json:"v"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
}

type profileResponse struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	Exchange  string  `json:"exchange"`
	Industry  string  `json:"finnhubIndustry"`
	MarketCap float64 `json:"marketCapitalization"` // millions
}

type quoteResponse struct {
	Current       float64 `json:"c"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

type metricResponse struct {
	Metric map[string]interface{} `json:"metric"`
}

// GetHistory returns daily closes for the period. "no_data" yields an empty series.
func (c *Client) GetHistory(ctx context.Context, symbol string, period drepo.Period) (models.PriceSeries, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, drepo.ErrUnknownSymbol
	}
	now := c.now()
	from, to := util.DayRange(period.Start(now), now)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", "D")
	q.Set("from", fmt.Sprint(from))
	q.Set("to", fmt.Sprint(to))

	var resp candleResponse
	if err := c.get(ctx, "/stock/candle", q, &resp); err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	if resp.Status == "no_data" {
		return models.PriceSeries{}, nil
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("candles %s: unexpected status %q", symbol, resp.Status)
	}

	n := len(resp.Close)
	if len(resp.Timestamp) < n {
		n = len(resp.Timestamp)
	}
	series := make(models.PriceSeries, 0, n)
	for i := 0; i < n; i++ {
		var vol float64
		if i < len(resp.Volume) {
			vol = resp.Volume[i]
		}
		series = append(series, models.PricePoint{
			Date:   time.Unix(resp.Timestamp[i], 0).UTC(),
			Close:  resp.Close[i],
			Volume: vol,
		})
	}
	return series, nil
}

// GetInfo merges profile, quote and PE metric. Quote and metric are best effort.
func (c *Client) GetInfo(ctx context.Context, symbol string) (*models.InstrumentInfo, error) {
	symbol = util.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, drepo.ErrUnknownSymbol
	}
	q := url.Values{}
	q.Set("symbol", symbol)

	var (
		profile profileResponse
		quote   quoteResponse
		metric  metricResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.get(gctx, "/stock/profile2", q, &profile); err != nil {
			return fmt.Errorf("profile %s: %w", symbol, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.get(gctx, "/quote", q, &quote); err != nil {
			c.l.Debug("finnhub quote failed", applogger.Symbol(symbol), applogger.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		mq := url.Values{}
		mq.Set("symbol", symbol)
		mq.Set("metric", "all")
		if err := c.get(gctx, "/stock/metric", mq, &metric); err != nil {
			c.l.Debug("finnhub metric failed", applogger.Symbol(symbol), applogger.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if profile.Name == "" && profile.Ticker == "" && quote.Current == 0 {
		return nil, drepo.ErrUnknownSymbol
	}

	return &models.InstrumentInfo{
		Symbol:       symbol,
		DisplayName:  profile.Name,
		CurrentPrice: quote.Current,
		MarketCap:    profile.MarketCap * 1e6,
		PERatio:      metricFloat(metric.Metric, "peBasicExclExtraTTM", "peTTM", "peNormalizedAnnual"),
		Industry:     profile.Industry,
		Exchange:     profile.Exchange,
	}, nil
}

func metricFloat(m map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return v
		}
	}
	return 0
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["X-Finnhub-Token"] = c.apiKey
	}
	err := c.http.GetJSON(ctx, c.baseURL+path, q, headers, dest)
	switch {
	case err == nil:
		return nil
	case xhttp.IsStatus(err, http.StatusTooManyRequests):
		return fmt.Errorf("%w: %v", drepo.ErrRateLimited, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	default:
		return err
	}
}
