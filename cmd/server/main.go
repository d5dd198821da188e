package main

import (
	"github.com/kitchenlens/relgraph/internal/server"
	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		Level: util.GetEnvString("LOG_LEVEL", "info"),
		JSON:  util.GetEnvString("LOG_FORMAT", "text") == "json",
	})
	logger.Init(consoleLogger)

	server.Init()
}
