package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/kitchenlens/relgraph/internal/server/middleware"
	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/graph"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"

	"github.com/labstack/echo/v4"
)

// AssembleHandler assembles a graph from a collections payload posted in the
// request body instead of the configured source.
func AssembleHandler(c echo.Context) error {
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

	decoded, err := common.DecodeCollections(body, mode)
	if err != nil {
		if errors.Is(err, common.ErrInputShape) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	cc := c.(*middleware.AppContext)
	g, report, err := cc.App.Assembler.AssembleWithReport(decoded.Collections, mode)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if decoded.Repaired {
		logger.Warn("[Server] Posted payload was not valid JSON, repaired", "request_id", cc.RequestID)
	}
	logReport(cc.RequestID, source.Request{Mode: mode, Scope: q.Scope}, report)

	return c.JSON(http.StatusOK, graphResponse{
		Graph:    g,
		Summary:  graph.Summarize(g),
		Repaired: decoded.Repaired,
	})
}
