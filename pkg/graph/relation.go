package graph

import (
	"math"
	"strconv"

	"github.com/kitchenlens/relgraph/pkg/common"
)

// RelationSpec states which kinds a relation type connects. Relation types
// without a spec are dropped during assembly; the endpoint kinds are never
// inferred from the ids.
type RelationSpec struct {
	Name string
	From EntityKind
	To   EntityKind
	// Annotations lists the pair fields that may annotate the edge label,
	// in priority order. The first present one is used.
	Annotations []string
}

// DefaultRelations returns the relation types the full-mode endpoint serves.
func DefaultRelations() []RelationSpec {
	return []RelationSpec{
		{Name: "similar_to", From: KindStore, To: KindStore, Annotations: []string{"score", "similarity"}},
		{Name: "triggered_by", From: KindWasteEvent, To: KindStaff, Annotations: []string{"urgency"}},
		{Name: "needs_training", From: KindStaff, To: KindTrainingModule, Annotations: []string{"urgency", "priority"}},
		{Name: "completed", From: KindStaff, To: KindTrainingModule, Annotations: []string{"score"}},
		{Name: "substitutes", From: KindIngredient, To: KindIngredient, Annotations: []string{"ratio"}},
		{Name: "caused_by", From: KindWasteEvent, To: KindIngredient, Annotations: []string{"quantity"}},
	}
}

// label formats the edge label for one relation pair: the relation name,
// followed by the first present annotation in parentheses.
func (r RelationSpec) label(pair common.RawRecord) string {
	for _, key := range r.Annotations {
		if value, ok := formatAnnotation(pair[key]); ok {
			return r.Name + " (" + value + ")"
		}
	}
	return r.Name
}

func formatAnnotation(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		if t == math.Trunc(t) {
			return strconv.FormatFloat(t, 'f', -1, 64), true
		}
		return strconv.FormatFloat(t, 'f', 2, 64), true
	case float32:
		return formatAnnotation(float64(t))
	case bool:
		return strconv.FormatBool(t), true
	}
	return formatScalar(v)
}
