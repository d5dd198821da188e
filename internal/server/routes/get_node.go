package routes

import (
	"net/http"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/graph"

	"github.com/labstack/echo/v4"
)

type nodeResponse struct {
	ID         graph.NodeID     `json:"id"`
	Name       string           `json:"name"`
	Kind       graph.EntityKind `json:"kind"`
	Attributes common.RawRecord `json:"attributes"`
	Edges      []graph.Edge     `json:"edges"`
}

// GetNodeHandler serves the detail inspection panel: the original record of
// one node and the edges touching it. Without an explicit mode the smallest
// mode that contains the node's kind is used.
func GetNodeHandler(c echo.Context) error {
	type getNodeParams struct {
		NodeID string `param:"node_id" validate:"required,max=256"`
	}

	params := new(getNodeParams)
	if err := (&echo.DefaultBinder{}).BindPathParams(c, params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	id, err := graph.ParseNodeID(params.NodeID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var q graphQuery
	if ok, err := bindGraphQuery(c, &q); !ok {
		return err
	}
	if q.Mode == "" {
		kind, _ := id.Split()
		q.Mode = string(graph.ModeFor(kind))
	}

	g, ok, err := graphForQuery(c, q)
	if !ok {
		return err
	}

	node, found := g.Node(id)
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Node not found"})
	}

	return c.JSON(http.StatusOK, nodeResponse{
		ID:         node.ID,
		Name:       node.Name,
		Kind:       node.Kind,
		Attributes: node.Attributes,
		Edges:      g.EdgesOf(id),
	})
}
