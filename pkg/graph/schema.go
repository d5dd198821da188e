package graph

import (
	"github.com/kitchenlens/relgraph/pkg/common"
)

// KindSchema tells the assembler how to read records of one kind: which
// collection holds them, which field identifies them, which fields may label
// them and which fields link them to other nodes.
type KindSchema struct {
	Kind        EntityKind
	Collection  string
	IDField     string
	LabelFields []string
	Links       []Link
}

// Link derives a structural edge from a field that names another record.
// By default the named record is the parent and the edge points from it to
// the current record. Outbound links point from the current record to the
// named one instead.
type Link struct {
	Field    string
	Kind     EntityKind
	Label    string
	Outbound bool
}

// DefaultSchemas returns the production field table, one entry per kind.
func DefaultSchemas() []KindSchema {
	return []KindSchema{
		{
			Kind:        KindStore,
			Collection:  common.CollectionStores,
			IDField:     "store_id",
			LabelFields: []string{"name", "store_name"},
		},
		{
			Kind:        KindDish,
			Collection:  common.CollectionDishes,
			IDField:     "dish_id",
			LabelFields: []string{"name", "dish_name"},
			Links: []Link{
				{Field: "store_id", Kind: KindStore, Label: "offers"},
			},
		},
		{
			Kind:        KindBOM,
			Collection:  common.CollectionBOMs,
			IDField:     "bom_id",
			LabelFields: []string{"name", "bom_name"},
			Links: []Link{
				{Field: "dish_id", Kind: KindDish, Label: "has_recipe"},
				{Field: "ingredient_id", Kind: KindIngredient, Label: "uses", Outbound: true},
			},
		},
		{
			Kind:        KindIngredient,
			Collection:  common.CollectionIngredients,
			IDField:     "ingredient_id",
			LabelFields: []string{"name", "ingredient_name"},
		},
		{
			Kind:        KindInventorySnapshot,
			Collection:  common.CollectionInventorySnapshots,
			IDField:     "snapshot_id",
			LabelFields: []string{"name", "snapshot_date"},
			Links: []Link{
				{Field: "store_id", Kind: KindStore, Label: "stocks"},
				{Field: "ingredient_id", Kind: KindIngredient, Label: "inventory_of"},
			},
		},
		{
			Kind:        KindStaff,
			Collection:  common.CollectionStaff,
			IDField:     "staff_id",
			LabelFields: []string{"name", "staff_name"},
			Links: []Link{
				{Field: "store_id", Kind: KindStore, Label: "employs"},
			},
		},
		{
			Kind:        KindWasteEvent,
			Collection:  common.CollectionWasteEvents,
			IDField:     "waste_id",
			LabelFields: []string{"name", "reason"},
			Links: []Link{
				{Field: "store_id", Kind: KindStore, Label: "reported_waste"},
				{Field: "ingredient_id", Kind: KindIngredient, Label: "wasted", Outbound: true},
			},
		},
		{
			Kind:        KindTrainingModule,
			Collection:  common.CollectionTrainingModules,
			IDField:     "module_id",
			LabelFields: []string{"title", "name"},
		},
	}
}

// recordID extracts the raw id of rec, reporting false when none can be
// derived.
func (s KindSchema) recordID(rec common.RawRecord) (string, bool) {
	if rec == nil {
		return "", false
	}
	return formatScalar(rec[s.IDField])
}

// displayName returns the first usable label field, falling back to rawID.
func (s KindSchema) displayName(rec common.RawRecord, rawID string) string {
	for _, field := range s.LabelFields {
		if name, ok := formatScalar(rec[field]); ok {
			return name
		}
	}
	return rawID
}
