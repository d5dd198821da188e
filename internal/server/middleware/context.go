package middleware

import (
	"github.com/kitchenlens/relgraph/internal/queue"
	"github.com/kitchenlens/relgraph/pkg/graph"
	"github.com/kitchenlens/relgraph/pkg/source"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

type App struct {
	Source    source.RecordSource
	Assembler *graph.Assembler
	Key       *keyfunc.Keyfunc
	// Queue is nil when no broker is configured.
	Queue queue.Publisher
	// FetchSem bounds concurrent source fetches across all requests.
	FetchSem *semaphore.Weighted
	// Builds collapses identical concurrent fetch+assemble runs.
	Builds         *singleflight.Group
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App       *App
	User      *AppUser
	RequestID string
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{Context: c, App: app}
			return next(cc)
		}
	}
}
