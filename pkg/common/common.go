package common

import (
	"errors"
	"fmt"
	"strings"
)

// RawRecord is one business record as the dashboard backend returned it.
// The assembler treats it as opaque apart from the id, label and link fields
// named in its kind schema; every attribute is kept for detail inspection.
type RawRecord map[string]any

// RawCollections holds the record collections that feed one graph assembly.
//
// The first five collections are always considered. Staff, WasteEvents,
// TrainingModules and Relations are only read in full mode. Relations maps a
// relation type name (e.g. "similar_to") to its from_id/to_id pairs, each
// optionally carrying an annotation such as a score or an urgency flag.
type RawCollections struct {
	Stores             []RawRecord            `json:"stores"`
	Dishes             []RawRecord            `json:"dishes"`
	BOMs               []RawRecord            `json:"boms"`
	Ingredients        []RawRecord            `json:"ingredients"`
	InventorySnapshots []RawRecord            `json:"inventorySnapshots"`
	Staff              []RawRecord            `json:"staff,omitempty"`
	WasteEvents        []RawRecord            `json:"wasteEvents,omitempty"`
	TrainingModules    []RawRecord            `json:"trainingModules,omitempty"`
	Relations          map[string][]RawRecord `json:"relations,omitempty"`
}

// Collection names as they appear in payloads.
const (
	CollectionStores             = "stores"
	CollectionDishes             = "dishes"
	CollectionBOMs               = "boms"
	CollectionIngredients        = "ingredients"
	CollectionInventorySnapshots = "inventorySnapshots"
	CollectionStaff              = "staff"
	CollectionWasteEvents        = "wasteEvents"
	CollectionTrainingModules    = "trainingModules"
	CollectionRelations          = "relations"
)

// BasicCollections lists the collections served by the basic-mode endpoint.
var BasicCollections = []string{
	CollectionStores,
	CollectionDishes,
	CollectionBOMs,
	CollectionIngredients,
	CollectionInventorySnapshots,
}

// FullCollections lists the record collections served by the full-mode
// endpoint, relations excluded.
var FullCollections = append(append([]string{}, BasicCollections...),
	CollectionStaff,
	CollectionWasteEvents,
	CollectionTrainingModules,
)

// Collection returns the records stored under the given collection name.
// Unknown names and absent collections yield nil.
func (c RawCollections) Collection(name string) []RawRecord {
	switch name {
	case CollectionStores:
		return c.Stores
	case CollectionDishes:
		return c.Dishes
	case CollectionBOMs:
		return c.BOMs
	case CollectionIngredients:
		return c.Ingredients
	case CollectionInventorySnapshots:
		return c.InventorySnapshots
	case CollectionStaff:
		return c.Staff
	case CollectionWasteEvents:
		return c.WasteEvents
	case CollectionTrainingModules:
		return c.TrainingModules
	}
	return nil
}

// SetCollection replaces the records stored under name. It reports false for
// unknown collection names.
func (c *RawCollections) SetCollection(name string, records []RawRecord) bool {
	switch name {
	case CollectionStores:
		c.Stores = records
	case CollectionDishes:
		c.Dishes = records
	case CollectionBOMs:
		c.BOMs = records
	case CollectionIngredients:
		c.Ingredients = records
	case CollectionInventorySnapshots:
		c.InventorySnapshots = records
	case CollectionStaff:
		c.Staff = records
	case CollectionWasteEvents:
		c.WasteEvents = records
	case CollectionTrainingModules:
		c.TrainingModules = records
	default:
		return false
	}
	return true
}

// Mode selects which entity kinds and relation types an assembly considers.
type Mode string

const (
	ModeBasic Mode = "basic"
	ModeFull  Mode = "full"
)

// ErrUnknownMode is returned for mode values other than basic and full.
var ErrUnknownMode = errors.New("unknown assembly mode")

// ParseMode parses a mode flag. The empty string selects basic mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBasic:
		return ModeBasic, nil
	case ModeFull:
		return ModeFull, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	return m == ModeBasic || m == ModeFull
}
