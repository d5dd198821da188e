package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/kitchenlens/relgraph/pkg/graph"
)

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// writeYAML renders v as YAML with the same keys as its JSON form.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func printSummary(w io.Writer, s graph.Summary) {
	header := color.New(color.Bold)
	key := color.New(color.FgCyan)
	count := color.New(color.FgGreen)

	header.Fprintln(w, "Graph summary")
	fmt.Fprintf(w, "  nodes:            %s\n", count.Sprint(s.NodeCount))
	fmt.Fprintf(w, "  edges:            %s\n", count.Sprint(s.EdgeCount))
	fmt.Fprintf(w, "  relational edges: %s\n", count.Sprint(s.RelationalEdges))

	header.Fprintln(w, "\nBy kind")
	for _, k := range slices.Sorted(maps.Keys(s.ByKind)) {
		fmt.Fprintf(w, "  %-24s %s\n", key.Sprint(k), count.Sprint(s.ByKind[k]))
	}

	header.Fprintln(w, "\nBy relation")
	for _, k := range slices.Sorted(maps.Keys(s.ByRelation)) {
		fmt.Fprintf(w, "  %-24s %s\n", key.Sprint(k), count.Sprint(s.ByRelation[k]))
	}
}

func printReport(w io.Writer, r graph.Report) {
	warn := color.New(color.FgYellow)
	if r.SkippedRecords > 0 {
		warn.Fprintf(w, "skipped %d records without a usable id\n", r.SkippedRecords)
	}
	if r.DuplicateRecords > 0 {
		warn.Fprintf(w, "ignored %d duplicate records\n", r.DuplicateRecords)
	}
	if r.DroppedEdges > 0 {
		warn.Fprintf(w, "dropped %d edges with a missing endpoint\n", r.DroppedEdges)
	}
	if len(r.UnknownRelations) > 0 {
		warn.Fprintf(w, "ignored unknown relations: %v\n", r.UnknownRelations)
	}
}
