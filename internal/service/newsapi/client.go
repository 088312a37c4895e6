package newsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Harry166/stro/internal/domain/models"
	drepo "github.com/Harry166/stro/internal/domain/repository"
	xhttp "github.com/Harry166/stro/pkg/http"
	"github.com/Harry166/stro/pkg/util"
)

// Client talks to NewsAPI (newsapi.org/v2).
type Client struct {
	apiKey  string
	baseURL string
	country string
	timeout time.Duration
	http    *xhttp.Client
}

var (
	_ drepo.NewsProvider     = (*Client)(nil)
	_ drepo.HeadlineProvider = (*Client)(nil)
)

func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		country: "us",
		timeout: timeout,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type apiResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

// Search queries /everything.
func (c *Client) Search(ctx context.Context, q models.NewsQuery) ([]models.Article, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format("2006-01-02"))
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return c.fetch(ctx, "/everything", params)
}

// TopHeadlines returns current headlines for a category (e.g. "business").
func (c *Client) TopHeadlines(ctx context.Context, category string, pageSize int) ([]models.Article, error) {
	params := url.Values{}
	params.Set("country", c.country)
	if category != "" {
		params.Set("category", category)
	}
	if pageSize > 0 {
		params.Set("pageSize", strconv.Itoa(pageSize))
	}
	return c.fetch(ctx, "/top-headlines", params)
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]models.Article, error) {
	if c.apiKey == "" {
		return nil, errors.New("newsapi: api key not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp apiResponse
	err := c.http.GetJSON(ctx, c.baseURL+path, params, map[string]string{"X-Api-Key": c.apiKey}, &resp)
	switch {
	case err == nil:
	case xhttp.IsStatus(err, http.StatusTooManyRequests):
		return nil, fmt.Errorf("newsapi %s: %w", path, drepo.ErrRateLimited)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("newsapi %s: %w", path, context.DeadlineExceeded)
	default:
		return nil, fmt.Errorf("newsapi %s: %w", path, err)
	}

	if resp.Status != "ok" {
		if resp.Code == "rateLimited" {
			return nil, fmt.Errorf("newsapi %s: %w", path, drepo.ErrRateLimited)
		}
		return nil, fmt.Errorf("newsapi %s: %s: %s", path, resp.Code, resp.Message)
	}

	out := make([]models.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		out = append(out, models.Article{
			Title:       strings.TrimSpace(a.Title),
			Description: strings.TrimSpace(a.Description),
			URL:         a.URL,
			PublishedAt: util.ParseTimeDefault(a.PublishedAt, time.Time{}),
			Source:      a.Source.Name,
		})
	}
	return out, nil
}
