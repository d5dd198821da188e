package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kitchenlens/relgraph/pkg/common"
)

// EntityKind identifies the business entity a node was materialized from.
type EntityKind string

const (
	KindStore             EntityKind = "Store"
	KindDish              EntityKind = "Dish"
	KindBOM               EntityKind = "BOM"
	KindIngredient        EntityKind = "Ingredient"
	KindInventorySnapshot EntityKind = "InventorySnapshot"

	// Full mode only.
	KindStaff          EntityKind = "Staff"
	KindWasteEvent     EntityKind = "WasteEvent"
	KindTrainingModule EntityKind = "TrainingModule"
)

var basicKinds = []EntityKind{
	KindStore,
	KindDish,
	KindBOM,
	KindIngredient,
	KindInventorySnapshot,
}

var fullKinds = []EntityKind{
	KindStore,
	KindDish,
	KindBOM,
	KindIngredient,
	KindInventorySnapshot,
	KindStaff,
	KindWasteEvent,
	KindTrainingModule,
}

// ErrUnknownMode is returned when an assembly is requested for a mode other
// than basic or full.
var ErrUnknownMode = common.ErrUnknownMode

// ActiveKinds returns the ordered kind list for mode. A node's CategoryIndex
// is the position of its kind in this list. Unknown modes yield nil.
func ActiveKinds(mode common.Mode) []EntityKind {
	switch mode {
	case common.ModeBasic:
		return append([]EntityKind(nil), basicKinds...)
	case common.ModeFull:
		return append([]EntityKind(nil), fullKinds...)
	}
	return nil
}

// CategoryIndex returns the position of kind in the mode's kind list, or -1.
func CategoryIndex(mode common.Mode, kind EntityKind) int {
	for i, k := range ActiveKinds(mode) {
		if k == kind {
			return i
		}
	}
	return -1
}

// ModeFor returns the smallest mode whose kind list contains kind.
func ModeFor(kind EntityKind) common.Mode {
	if slices.Contains(basicKinds, kind) {
		return common.ModeBasic
	}
	return common.ModeFull
}

// ParseKind resolves a kind name as used in node ids.
func ParseKind(s string) (EntityKind, bool) {
	for _, k := range fullKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// NodeID is the identity of a node: "<EntityKind>:<raw id>". Raw ids are
// only unique within one kind, so the kind prefix is part of the identity.
type NodeID string

// NewNodeID builds the composite id for a raw id of the given kind.
func NewNodeID(kind EntityKind, rawID string) NodeID {
	return NodeID(string(kind) + ":" + rawID)
}

// Split returns the kind and raw id parts of the id.
func (id NodeID) Split() (EntityKind, string) {
	kind, raw, _ := strings.Cut(string(id), ":")
	return EntityKind(kind), raw
}

var errInvalidNodeID = errors.New("invalid node id")

// ParseNodeID validates s as a node id with a known kind prefix and a
// non-empty raw id.
func ParseNodeID(s string) (NodeID, error) {
	kind, raw, ok := strings.Cut(s, ":")
	if !ok || raw == "" {
		return "", fmt.Errorf("%w: %q", errInvalidNodeID, s)
	}
	if _, known := ParseKind(kind); !known {
		return "", fmt.Errorf("%w: unknown kind %q", errInvalidNodeID, kind)
	}
	return NodeID(s), nil
}
