package middleware

import (
	"github.com/kitchenlens/relgraph/internal/util"

	"github.com/labstack/echo/v4"
)

const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware accepts a well-formed incoming X-Request-ID or
// generates one, and echoes it on the response. Must run after
// AppContextMiddleware.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := util.RequestIDOrNew(c.Request().Header.Get(HeaderRequestID))
		c.Response().Header().Set(HeaderRequestID, id)
		if cc, ok := c.(*AppContext); ok {
			cc.RequestID = id
		}
		return next(c)
	}
}
