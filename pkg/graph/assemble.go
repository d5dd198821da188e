package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kitchenlens/relgraph/pkg/common"
)

// Config is the static knowledge the assembler works from. Tests may pass a
// reduced table; production code uses DefaultConfig.
type Config struct {
	Schemas   []KindSchema
	Styles    StyleTable
	Relations []RelationSpec
}

// DefaultConfig returns the production schemas, styles and relation types.
func DefaultConfig() Config {
	return Config{
		Schemas:   DefaultSchemas(),
		Styles:    DefaultStyles(),
		Relations: DefaultRelations(),
	}
}

// Assembler turns raw record collections into a Graph. It holds no mutable
// state and may be used from multiple goroutines.
type Assembler struct {
	schemas   map[EntityKind]KindSchema
	styles    StyleTable
	relations map[string]RelationSpec
}

// Report counts what an assembly left out. Omissions are never errors.
type Report struct {
	// SkippedRecords had no usable id.
	SkippedRecords int `json:"skipped_records"`
	// DuplicateRecords repeated an id already materialized.
	DuplicateRecords int `json:"duplicate_records"`
	// DroppedEdges referenced a node that was never materialized or had
	// no usable endpoint id.
	DroppedEdges int `json:"dropped_edges"`
	// UnknownRelations lists relation types with no RelationSpec.
	UnknownRelations []string `json:"unknown_relations,omitempty"`
}

// Empty reports whether assembly used every input record and edge.
func (r Report) Empty() bool {
	return r.SkippedRecords == 0 && r.DuplicateRecords == 0 && r.DroppedEdges == 0 && len(r.UnknownRelations) == 0
}

// NewAssembler builds an assembler from cfg. Later entries for the same
// kind or relation name replace earlier ones.
func NewAssembler(cfg Config) *Assembler {
	a := &Assembler{
		schemas:   make(map[EntityKind]KindSchema, len(cfg.Schemas)),
		styles:    maps.Clone(cfg.Styles),
		relations: make(map[string]RelationSpec, len(cfg.Relations)),
	}
	for _, s := range cfg.Schemas {
		a.schemas[s.Kind] = s
	}
	for _, r := range cfg.Relations {
		a.relations[r.Name] = r
	}
	return a
}

var defaultAssembler = NewAssembler(DefaultConfig())

// Assemble builds a graph with the default configuration.
func Assemble(raw common.RawCollections, mode common.Mode) (*Graph, error) {
	return defaultAssembler.Assemble(raw, mode)
}

// Assemble builds the graph for raw in the given mode.
func (a *Assembler) Assemble(raw common.RawCollections, mode common.Mode) (*Graph, error) {
	g, _, err := a.AssembleWithReport(raw, mode)
	return g, err
}

// AssembleWithReport builds the graph and reports what was omitted.
//
// Nodes are materialized collection by collection in the mode's kind order;
// structural edges are recorded while walking, relational edges (full mode
// only) once every node exists. Edges whose endpoints were not materialized
// are dropped at the end. The input is not modified.
func (a *Assembler) AssembleWithReport(raw common.RawCollections, mode common.Mode) (*Graph, Report, error) {
	if !mode.Valid() {
		return nil, Report{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	kinds := ActiveKinds(mode)
	b := &builder{
		graph: &Graph{
			Mode:       mode,
			Nodes:      []Node{},
			Edges:      []Edge{},
			Categories: make([]Category, 0, len(kinds)),
			index:      make(map[NodeID]int),
		},
	}

	for categoryIndex, kind := range kinds {
		style := a.styles.Style(kind)
		b.graph.Categories = append(b.graph.Categories, Category{Name: string(kind), Color: style.Color})

		schema, ok := a.schemas[kind]
		if !ok {
			continue
		}
		for _, rec := range raw.Collection(schema.Collection) {
			b.addRecord(schema, style, categoryIndex, rec)
		}
	}

	if mode == common.ModeFull {
		a.addRelations(b, raw.Relations)
	}

	b.dropDanglingEdges()
	return b.graph, b.report, nil
}

func (a *Assembler) addRelations(b *builder, relations map[string][]common.RawRecord) {
	names := slices.Sorted(maps.Keys(relations))
	for _, name := range names {
		spec, ok := a.relations[name]
		if !ok {
			b.report.UnknownRelations = append(b.report.UnknownRelations, name)
			continue
		}
		for _, pair := range relations[name] {
			from, okFrom := formatScalar(pair["from_id"])
			to, okTo := formatScalar(pair["to_id"])
			if !okFrom || !okTo {
				b.report.DroppedEdges++
				continue
			}
			b.graph.Edges = append(b.graph.Edges, Edge{
				Source:     NewNodeID(spec.From, from),
				Target:     NewNodeID(spec.To, to),
				Label:      spec.label(pair),
				Relational: true,
			})
		}
	}
}

type builder struct {
	graph  *Graph
	report Report
}

func (b *builder) addRecord(schema KindSchema, style KindStyle, categoryIndex int, rec common.RawRecord) {
	rawID, ok := schema.recordID(rec)
	if !ok {
		b.report.SkippedRecords++
		return
	}

	id := NewNodeID(schema.Kind, rawID)
	if _, exists := b.graph.index[id]; exists {
		b.report.DuplicateRecords++
		return
	}

	b.graph.index[id] = len(b.graph.Nodes)
	b.graph.Nodes = append(b.graph.Nodes, Node{
		ID:            id,
		Name:          schema.displayName(rec, rawID),
		Kind:          schema.Kind,
		CategoryIndex: categoryIndex,
		VisualWeight:  style.Weight,
		Style:         NodeStyle{Color: style.Color},
		Attributes:    maps.Clone(rec),
	})

	for _, link := range schema.Links {
		linkedID, ok := formatScalar(rec[link.Field])
		if !ok {
			continue
		}
		linked := NewNodeID(link.Kind, linkedID)
		edge := Edge{Source: linked, Target: id, Label: link.Label}
		if link.Outbound {
			edge.Source, edge.Target = id, linked
		}
		b.graph.Edges = append(b.graph.Edges, edge)
	}
}

func (b *builder) dropDanglingEdges() {
	valid := b.graph.Edges[:0]
	for _, e := range b.graph.Edges {
		_, okSource := b.graph.index[e.Source]
		_, okTarget := b.graph.index[e.Target]
		if !okSource || !okTarget {
			b.report.DroppedEdges++
			continue
		}
		valid = append(valid, e)
	}
	b.graph.Edges = valid
}
