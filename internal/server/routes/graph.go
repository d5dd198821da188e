package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kitchenlens/relgraph/internal/server/middleware"
	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/graph"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"

	"github.com/labstack/echo/v4"
)

var errBusy = errors.New("too many concurrent graph builds")

type graphQuery struct {
	Mode  string `query:"mode" validate:"omitempty,oneof=basic full"`
	Scope string `query:"scope" validate:"max=128"`
}

type graphResponse struct {
	*graph.Graph
	Summary  graph.Summary `json:"summary"`
	Repaired bool          `json:"repaired,omitempty"`
}

type buildResult struct {
	graph  *graph.Graph
	report graph.Report
}

// bindGraphQuery reads mode and scope from the query string. It writes the
// 400 response itself and returns ok=false on invalid input.
func bindGraphQuery(c echo.Context, q *graphQuery) (bool, error) {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, q); err != nil {
		return false, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid query params"})
	}
	q.Mode = strings.ToLower(strings.TrimSpace(q.Mode))
	if err := c.Validate(q); err != nil {
		return false, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid query params"})
	}
	if !source.ValidScope(q.Scope) {
		return false, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid scope"})
	}
	return true, nil
}

// buildGraph fetches the records for req from the configured source and
// assembles them. Concurrent fetches are bounded by the app semaphore and
// identical concurrent builds share one result. A caller that goes away
// does not cancel a build other callers are waiting on.
func buildGraph(ctx context.Context, app *middleware.App, req source.Request) (*graph.Graph, graph.Report, error) {
	if app.FetchSem != nil {
		if err := app.FetchSem.Acquire(ctx, 1); err != nil {
			return nil, graph.Report{}, errBusy
		}
		defer app.FetchSem.Release(1)
	}

	br, _, err := util.DoShared(ctx, app.Builds, source.CacheKey(req), source.FetchTimeout, func(ctx context.Context) (buildResult, error) {
		raw, err := app.Source.Fetch(ctx, req)
		if err != nil {
			return buildResult{}, err
		}
		g, report, err := app.Assembler.AssembleWithReport(raw, req.Mode)
		if err != nil {
			return buildResult{}, err
		}
		return buildResult{graph: g, report: report}, nil
	})
	if err != nil {
		return nil, graph.Report{}, err
	}
	return br.graph, br.report, nil
}

func graphForQuery(c echo.Context, q graphQuery) (*graph.Graph, bool, error) {
	cc := c.(*middleware.AppContext)
	mode, err := common.ParseMode(q.Mode)
	if err != nil {
		return nil, false, c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	req := source.Request{Mode: mode, Scope: q.Scope}
	g, report, err := buildGraph(c.Request().Context(), cc.App, req)
	if err != nil {
		return nil, false, respondBuildError(c, err)
	}
	logReport(cc.RequestID, req, report)
	return g, true, nil
}

func respondBuildError(c echo.Context, err error) error {
	requestID := c.(*middleware.AppContext).RequestID
	switch {
	case errors.Is(err, errBusy):
		logger.Warn("[Server] Graph build rejected, too many concurrent builds", "request_id", requestID)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Too many concurrent requests"})
	case errors.Is(err, source.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No records for scope"})
	case errors.Is(err, common.ErrUnknownMode):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	logger.Error("[Server] Failed to load records", "request_id", requestID, "err", err)
	return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to load records"})
}

func logReport(requestID string, req source.Request, report graph.Report) {
	if report.Empty() {
		return
	}
	logger.Warn("[Graph] Assembly omitted input",
		"request_id", requestID,
		"mode", req.Mode,
		"scope", req.Scope,
		"skipped_records", report.SkippedRecords,
		"duplicate_records", report.DuplicateRecords,
		"dropped_edges", report.DroppedEdges,
		"unknown_relations", report.UnknownRelations,
	)
}
