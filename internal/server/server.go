package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kitchenlens/relgraph/internal/queue"
	mid "github.com/kitchenlens/relgraph/internal/server/middleware"
	"github.com/kitchenlens/relgraph/internal/storage"
	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/graph"
	"github.com/kitchenlens/relgraph/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewEcho builds the HTTP server around app without starting it.
func NewEcho(app *mid.App, bodyLimit string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(mid.RequestIDMiddleware)
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var key *keyfunc.Keyfunc
	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefaultCtx(ctx, []string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		key = &k
	} else {
		logger.Warn("AUTH_URL not set, only the master API key is accepted")
	}

	src, closeSource, err := storage.NewRecordSource(ctx)
	if err != nil {
		logger.Fatal("Failed to create record source", "err", err)
	}
	defer closeSource()

	var publisher queue.Publisher
	if util.GetEnv("RABBITMQ_HOST") != "" {
		que := queue.Init()
		defer que.Close()
		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.AssembleQueue}); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		publisher = ch
	}

	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)

	app := &mid.App{
		Source:         src,
		Assembler:      graph.NewAssembler(graph.DefaultConfig()),
		Key:            key,
		Queue:          publisher,
		FetchSem:       semaphore.NewWeighted(fetchParallel()),
		Builds:         &singleflight.Group{},
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   masterUserID,
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
	}

	e := NewEcho(app, util.GetEnvString("BODY_LIMIT", "32M"))

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// fetchParallel reads FETCH_PARALLEL, the number of concurrent graph
// builds. Values below 1 fall back to 1.
func fetchParallel() int64 {
	return int64(max(1, util.GetEnvInt("FETCH_PARALLEL", 8)))
}
