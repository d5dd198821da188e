package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/graph"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"

	"github.com/rabbitmq/amqp091-go"
)

const (
	AssembleQueue  = "assemble_queue"
	TopicAssembled = "graph.assembled"
)

// ErrUnprocessable marks a message that can never succeed, e.g. malformed
// JSON or a payload that breaks the collections contract. Such messages go
// straight to the dead-letter queue.
var ErrUnprocessable = errors.New("unprocessable message")

// AssembleMsg requests one graph assembly. Inline Collections take
// precedence over the configured record source.
type AssembleMsg struct {
	RequestID   string           `json:"request_id"`
	Mode        string           `json:"mode"`
	Scope       string           `json:"scope,omitempty"`
	Collections *json.RawMessage `json:"collections,omitempty"`
	// Repaired is set when the enqueuing side had to repair the payload
	// before forwarding it.
	Repaired bool `json:"repaired,omitempty"`
}

// AssembledEvent is published on the topic exchange after every successful
// assembly.
type AssembledEvent struct {
	RequestID string        `json:"request_id"`
	Mode      common.Mode   `json:"mode"`
	Scope     string        `json:"scope,omitempty"`
	Summary   graph.Summary `json:"summary"`
	Repaired  bool          `json:"repaired,omitempty"`
}

type AssembleDeps struct {
	Source    source.RecordSource
	Assembler *graph.Assembler
	Publisher Publisher
}

// ProcessAssembleMessage assembles the graph a message asks for. When the
// message carries a ReplyTo queue the graph is sent there with the same
// correlation id; an AssembledEvent is always published.
func ProcessAssembleMessage(ctx context.Context, deps AssembleDeps, msg amqp091.Delivery) error {
	var data AssembleMsg
	if err := json.Unmarshal(msg.Body, &data); err != nil {
		return fmt.Errorf("%w: %w", ErrUnprocessable, err)
	}

	mode, err := common.ParseMode(data.Mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnprocessable, err)
	}
	if !source.ValidScope(data.Scope) {
		return fmt.Errorf("%w: invalid scope %q", ErrUnprocessable, data.Scope)
	}

	logger.Info("[Queue] Assembling graph", "request_id", data.RequestID, "mode", mode, "scope", data.Scope)

	var (
		raw      common.RawCollections
		repaired bool
	)
	if data.Collections != nil {
		decoded, err := common.DecodeCollections(*data.Collections, mode)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnprocessable, err)
		}
		raw, repaired = decoded.Collections, decoded.Repaired || data.Repaired
	} else {
		if deps.Source == nil {
			return fmt.Errorf("%w: no inline collections and no record source", ErrUnprocessable)
		}
		raw, err = deps.Source.Fetch(ctx, source.Request{Mode: mode, Scope: data.Scope})
		if err != nil {
			if errors.Is(err, common.ErrInputShape) || errors.Is(err, source.ErrNotFound) {
				return fmt.Errorf("%w: %w", ErrUnprocessable, err)
			}
			return fmt.Errorf("failed to fetch records: %w", err)
		}
	}

	g, report, err := deps.Assembler.AssembleWithReport(raw, mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnprocessable, err)
	}
	if !report.Empty() {
		logger.Warn("[Queue] Assembly omitted input",
			"request_id", data.RequestID,
			"skipped_records", report.SkippedRecords,
			"duplicate_records", report.DuplicateRecords,
			"dropped_edges", report.DroppedEdges,
			"unknown_relations", report.UnknownRelations,
		)
	}

	if msg.ReplyTo != "" {
		body, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("failed to encode graph: %w", err)
		}
		if err := Reply(ctx, deps.Publisher, msg, body); err != nil {
			return fmt.Errorf("failed to publish reply: %w", err)
		}
	}

	event := AssembledEvent{
		RequestID: data.RequestID,
		Mode:      mode,
		Scope:     data.Scope,
		Summary:   graph.Summarize(g),
		Repaired:  repaired,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := PublishTopic(ctx, deps.Publisher, TopicAssembled, body); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Info("[Queue] Graph assembled", "request_id", data.RequestID, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}
