package routes

import (
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/labstack/echo/v4"
)

var graphSchema = sync.OnceValue(func() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&graphResponse{})
	s.Title = "Assembled graph"
	s.Description = "Nodes, edges and legend categories of an entity-relationship graph, with summary counts."
	return s
})

// GetSchemaHandler serves the JSON Schema of the graph response.
func GetSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, graphSchema())
}
