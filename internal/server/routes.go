package server

import (
	"net/http"

	"github.com/kitchenlens/relgraph/internal/server/middleware"
	"github.com/kitchenlens/relgraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Public schema of the graph response
	e.GET("/api/graph/schema", routes.GetSchemaHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Graph routes
	apiRoutes.GET("/graph", routes.GetGraphHandler, middleware.RequirePermission(middleware.PermissionGraphView))
	apiRoutes.GET("/graph/summary", routes.GetSummaryHandler, middleware.RequirePermission(middleware.PermissionGraphView))
	apiRoutes.GET("/graph/nodes/:node_id", routes.GetNodeHandler,
		middleware.RequireAnyPermission(middleware.PermissionGraphInspect, middleware.PermissionGraphView))
	apiRoutes.POST("/graph/assemble", routes.AssembleHandler, middleware.RequirePermission(middleware.PermissionGraphAssemble))
	apiRoutes.POST("/graph/jobs", routes.EnqueueAssembleHandler, middleware.RequirePermission(middleware.PermissionGraphAssemble))
}
