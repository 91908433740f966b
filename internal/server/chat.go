package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	core "github.com/mohammad-safakhou/axiom/internal/agent/core"
)

var chatTracer trace.Tracer = otel.Tracer("axiom/internal/server/chat")

var errStreamingUnsupported = errors.New("streaming unsupported")

// ChatHandler streams one research session per request as server-sent events.
type ChatHandler struct {
	Researcher Researcher
	Logger     *zap.Logger
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req core.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.UserID = userID(c)
	req.SessionID = c.Response().Header().Get(echo.HeaderXRequestID)

	ctx, span := chatTracer.Start(c.Request().Context(), "ChatHandler.chat")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", req.UserID), attribute.Bool("user.authenticated", authenticated(c)))

	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, errStreamingUnsupported.Error())
	}
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	var mu sync.Mutex
	sink := core.SinkFunc(func(ev core.Event) error {
		mu.Lock()
		defer mu.Unlock()
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := core.WriteEvent(resp, ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	if err := h.Researcher.Run(ctx, req, sink); err != nil && h.Logger != nil {
		h.Logger.Debug("chat session ended with error", zap.String("user_id", req.UserID), zap.Error(err))
	}
	// the stream already carries the outcome
	return nil
}
