package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kitchenlens/relgraph/internal/queue"
	"github.com/kitchenlens/relgraph/internal/storage"
	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/graph"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Level:  util.GetEnvString("LOG_LEVEL", "info"),
		JSON:   util.GetEnvString("LOG_FORMAT", "text") == "json",
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	src, closeSource, err := storage.NewRecordSource(ctx)
	if err != nil {
		logger.Fatal("Could not create record source", "err", err)
	}
	defer closeSource()

	deps := queue.AssembleDeps{
		Source:    src,
		Assembler: graph.NewAssembler(graph.DefaultConfig()),
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.AssembleQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}
	deps.Publisher = ch

	// prefetch=1 keeps one assembly in flight per worker
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.AssembleQueue,
		fmt.Sprintf("%s_consumer", queue.AssembleQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.AssembleQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.AssembleQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.AssembleQueue)
				return
			}

			startTime := time.Now()
			if err := queue.ProcessAssembleMessage(ctx, deps, msg); err != nil {
				logger.Error("Error processing message", "queue", queue.AssembleQueue, "err", err)
				queue.HandleProcessingError(ctx, ch, msg, queue.AssembleQueue, err)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("Failed to ack message", "err", err)
			}
			logger.Info("Message processed successfully", "queue", queue.AssembleQueue, "duration", time.Since(startTime).Round(time.Millisecond))
		}
	}
}
