package routes

import (
	"net/http"

	"github.com/kitchenlens/relgraph/pkg/graph"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler assembles the graph for the requested mode and scope from
// the configured record source.
func GetGraphHandler(c echo.Context) error {
	var q graphQuery
	if ok, err := bindGraphQuery(c, &q); !ok {
		return err
	}

	g, ok, err := graphForQuery(c, q)
	if !ok {
		return err
	}

	return c.JSON(http.StatusOK, graphResponse{Graph: g, Summary: graph.Summarize(g)})
}
