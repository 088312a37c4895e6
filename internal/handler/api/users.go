package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Harry166/stro/internal/domain/models"
	xhttp "github.com/Harry166/stro/pkg/http"
)

func (h *Handler) Watchlist(c echo.Context) error {
	req := &models.UserRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	entries, err := h.watchlist.List(c.Request().Context(), req.UserID)
	if err != nil {
		return h.fail(c, "watchlist_list", err)
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

func (h *Handler) AddWatchlist(c echo.Context) error {
	req := &models.WatchlistRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.watchlist.Add(c.Request().Context(), req.UserID, req.Symbol)
	if err != nil {
		return h.fail(c, "watchlist_add", err)
	}
	return writeResult(c, res, http.StatusCreated)
}

func (h *Handler) RemoveWatchlist(c echo.Context) error {
	req := &models.WatchlistRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.watchlist.Remove(c.Request().Context(), req.UserID, req.Symbol)
	if err != nil {
		return h.fail(c, "watchlist_remove", err)
	}
	return writeResult(c, res, http.StatusOK)
}

// writeResult maps a structured watchlist result to a response. Failures
// such as duplicates are client errors with the result as payload.
func writeResult(c echo.Context, res models.WatchlistResult, okStatus int) error {
	status := okStatus
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	return xhttp.MessageResponse(c, status, res.Message, res)
}

func (h *Handler) Alerts(c echo.Context) error {
	req := &models.UserRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	evs, err := h.alerts.LiveAlerts(c.Request().Context(), req.UserID)
	if err != nil {
		return h.fail(c, "alerts_live", err)
	}
	return xhttp.ListResponse(c, evs, int64(len(evs)))
}

func (h *Handler) AlertHistory(c echo.Context) error {
	req := &models.AlertHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	evs, err := h.alerts.History(c.Request().Context(), req.UserID, req.Hours)
	if err != nil {
		return h.fail(c, "alerts_history", err)
	}
	return xhttp.ListResponse(c, evs, int64(len(evs)))
}
