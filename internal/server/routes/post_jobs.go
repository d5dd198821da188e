package routes

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kitchenlens/relgraph/internal/queue"
	"github.com/kitchenlens/relgraph/internal/server/middleware"
	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EnqueueAssembleHandler queues an assembly for the worker and returns the
// request id the resulting graph.assembled event will carry. A non-empty
// body is forwarded as inline collections.
func EnqueueAssembleHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	if cc.App.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Queue not configured"})
	}

	var q graphQuery
	if ok, err := bindGraphQuery(c, &q); !ok {
		return err
	}
	mode, err := common.ParseMode(q.Mode)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	msg := queue.AssembleMsg{
		RequestID: cc.RequestID,
		Mode:      string(mode),
		Scope:     q.Scope,
	}
	if len(body) > 0 {
		decoded, err := common.DecodeCollections(body, mode)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		raw := json.RawMessage(body)
		if decoded.Repaired {
			// RawMessage must be valid JSON; forward the repaired form.
			if raw, err = json.Marshal(decoded.Collections); err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			}
		}
		msg.Collections = &raw
		msg.Repaired = decoded.Repaired
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if err := queue.PublishFIFO(c.Request().Context(), cc.App.Queue, queue.AssembleQueue, data); err != nil {
		logger.Error("[Server] Failed to enqueue assembly", "request_id", cc.RequestID, "err", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to enqueue"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"request_id": cc.RequestID,
		"status":     "queued",
	})
}
