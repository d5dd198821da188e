package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/graph"
)

type nodeDetail struct {
	ID         graph.NodeID     `json:"id"`
	Name       string           `json:"name"`
	Kind       graph.EntityKind `json:"kind"`
	Attributes common.RawRecord `json:"attributes"`
	Edges      []graph.Edge     `json:"edges"`
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <node-id>",
		Short: "Show the original record and edges of one node",
		Long: `Show one node as the detail panel would.

Node ids have the form <Kind>:<id>, for example Dish:D1. Without --mode
the smallest mode containing the node's kind is assembled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := graph.ParseNodeID(args[0])
			if err != nil {
				return err
			}

			modeFlag, _ := cmd.Flags().GetString("mode")
			jsonOut, _ := cmd.Flags().GetBool("json")

			var mode common.Mode
			if modeFlag == "" {
				kind, _ := id.Split()
				mode = graph.ModeFor(kind)
			} else if mode, err = common.ParseMode(modeFlag); err != nil {
				return err
			}

			raw, err := loadCollections(cmd.Context(), cmd, mode)
			if err != nil {
				return err
			}
			g, err := graph.NewAssembler(graph.DefaultConfig()).Assemble(raw, mode)
			if err != nil {
				return err
			}

			node, ok := g.Node(id)
			if !ok {
				return fmt.Errorf("node %s not found in %s graph", id, mode)
			}
			detail := nodeDetail{
				ID:         node.ID,
				Name:       node.Name,
				Kind:       node.Kind,
				Attributes: node.Attributes,
				Edges:      g.EdgesOf(id),
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), detail, true)
			}
			return writeYAML(cmd.OutOrStdout(), detail)
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().StringP("mode", "m", "", "Assembly mode (basic, full), derived from the node kind if empty")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
