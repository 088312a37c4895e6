package googlenews

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/Harry166/stro/internal/domain/models"
	drepo "github.com/Harry166/stro/internal/domain/repository"
	"github.com/Harry166/stro/pkg/util"
)

// Client reads Google News RSS search results. No API key is needed.
type Client struct {
	feedURL string
	timeout time.Duration
}

var (
	_ drepo.NewsProvider     = (*Client)(nil)
	_ drepo.HeadlineProvider = (*Client)(nil)
)

func New(feedURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{feedURL: feedURL, timeout: timeout}
}

func (c *Client) Search(ctx context.Context, q models.NewsQuery) ([]models.Article, error) {
	lang := q.Language
	if lang == "" {
		lang = "en"
	}
	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("hl", lang+"-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:"+lang)

	items, err := c.collect(ctx, c.feedURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	out := make([]models.Article, 0, len(items))
	for _, a := range items {
		if !q.From.IsZero() && !a.PublishedAt.IsZero() && a.PublishedAt.Before(q.From) {
			continue
		}
		out = append(out, a)
		if q.PageSize > 0 && len(out) == q.PageSize {
			break
		}
	}
	return out, nil
}

// TopHeadlines searches the category keyword. The RSS feed has no ranking for it.
func (c *Client) TopHeadlines(ctx context.Context, category string, pageSize int) ([]models.Article, error) {
	if category == "" {
		category = "business"
	}
	return c.Search(ctx, models.NewsQuery{Query: category + " news", PageSize: pageSize})
}

func (c *Client) collect(ctx context.Context, feed string) ([]models.Article, error) {
	col := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent("stro/1.0"),
		colly.AllowURLRevisit(),
	)
	col.SetRequestTimeout(c.timeout)

	var (
		mu       sync.Mutex
		articles []models.Article
		status   int
	)
	col.OnXML("//item", func(e *colly.XMLElement) {
		title, source := splitTitle(e.ChildText("title"))
		if s := strings.TrimSpace(e.ChildText("source")); s != "" {
			source = s
		}
		a := models.Article{
			Title:       title,
			Description: stripHTML(e.ChildText("description")),
			URL:         strings.TrimSpace(e.ChildText("link")),
			PublishedAt: util.ParseTimeDefault(strings.TrimSpace(e.ChildText("pubDate")), time.Time{}),
			Source:      source,
		}
		mu.Lock()
		articles = append(articles, a)
		mu.Unlock()
	})
	col.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := col.Visit(feed)
	col.Wait()
	if status == http.StatusTooManyRequests {
		return nil, fmt.Errorf("google news: %w", drepo.ErrRateLimited)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("google news: %w", ctx.Err())
		}
		return nil, fmt.Errorf("google news: %w", err)
	}
	return articles, nil
}

// splitTitle separates the trailing " - Publisher" Google appends to headlines.
func splitTitle(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, " - "); idx > 0 && idx < len(raw)-3 {
		return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+3:])
	}
	return raw, "Google News"
}

func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
