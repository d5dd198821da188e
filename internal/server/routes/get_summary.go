package routes

import (
	"net/http"

	"github.com/kitchenlens/relgraph/pkg/graph"

	"github.com/labstack/echo/v4"
)

func GetSummaryHandler(c echo.Context) error {
	var q graphQuery
	if ok, err := bindGraphQuery(c, &q); !ok {
		return err
	}

	g, ok, err := graphForQuery(c, q)
	if !ok {
		return err
	}

	return c.JSON(http.StatusOK, graph.Summarize(g))
}
