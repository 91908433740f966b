package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/axiom/internal/store"
)

// ThreadsHandler exposes the caller's saved conversations.
type ThreadsHandler struct {
	Store *store.Store
}

func (h *ThreadsHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)
}

func (h *ThreadsHandler) list(c echo.Context) error {
	uid := userID(c)
	if uid == store.AnonymousUser {
		return echo.NewHTTPError(http.StatusBadRequest, "user id required")
	}
	threads, err := h.Store.ListThreads(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch history")
	}
	return c.JSON(http.StatusOK, HistoryResponse{Snapshots: threads})
}

// get returns a thread when it is public or owned by the caller.
func (h *ThreadsHandler) get(c echo.Context) error {
	id, err := threadID(c)
	if err != nil {
		return err
	}
	th, msgs, err := h.Store.GetThread(c.Request().Context(), id)
	if errors.Is(err, store.ErrThreadNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "thread not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !th.IsPublic && th.UserID != userID(c) {
		return echo.NewHTTPError(http.StatusForbidden, "unauthorized")
	}
	return c.JSON(http.StatusOK, ThreadResponse{
		ThreadID:  th.ID,
		Title:     th.Title,
		IsPublic:  th.IsPublic,
		UpdatedAt: th.UpdatedAt,
		Messages:  msgs,
	})
}

func (h *ThreadsHandler) delete(c echo.Context) error {
	id, err := threadID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	owner, err := h.Store.ThreadOwner(ctx, id)
	if errors.Is(err, store.ErrThreadNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "thread not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if owner != userID(c) {
		return echo.NewHTTPError(http.StatusForbidden, "unauthorized")
	}
	if err := h.Store.DeleteThread(ctx, id); err != nil && !errors.Is(err, store.ErrThreadNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete thread")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func threadID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid thread id")
	}
	return id, nil
}
