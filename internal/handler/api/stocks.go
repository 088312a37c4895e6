package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Harry166/stro/internal/domain/models"
	domrepo "github.com/Harry166/stro/internal/domain/repository"
	xhttp "github.com/Harry166/stro/pkg/http"
)

func (h *Handler) Trending(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.SuccessResponse(c, h.ranking.Snapshot())
}

func (h *Handler) RefreshTrending(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if len(req.Symbols) > 0 {
		items, err := h.ranking.Rank(ctx, req.Symbols)
		if err != nil {
			return h.fail(c, "rank", err)
		}
		return xhttp.ListResponse(c, items, int64(len(items)))
	}
	snap, err := h.ranking.Refresh(ctx)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *Handler) MarketNews(c echo.Context) error {
	articles, source := h.news.MarketNews(c.Request().Context())
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"articles": articles,
		"source":   source,
	})
}

// NewsBudget shows how many news provider calls remain in the current window.
func (h *Handler) NewsBudget(c echo.Context) error {
	if h.budget == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("News budget is not tracked"))
	}
	s := h.budget.Snapshot()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"window_start":   s.WindowStart,
		"window_minutes": int(s.WindowLength / time.Minute),
		"budget":         s.Budget,
		"calls":          s.CallCount,
		"remaining":      s.Remaining(),
	})
}

func (h *Handler) Stock(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.stocks.Analyze(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Outlook(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.stocks.Outlook(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "outlook", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Trend(c echo.Context) error {
	req := &models.TrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	period := domrepo.NormalizePeriod(req.Period)
	return xhttp.SuccessResponse(c, h.stocks.Trend(c.Request().Context(), req.Symbol, period))
}

func (h *Handler) Sentiment(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.stocks.Sentiment(c.Request().Context(), req.Symbol))
}
