package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrInputShape marks a payload whose structure breaks the collaborator
// contract, e.g. a collection that is present but not an array. It is never
// recovered from.
var ErrInputShape = errors.New("input shape violation")

// collectionAliases maps accepted payload keys to collection names.
var collectionAliases = map[string]string{
	"stores":              CollectionStores,
	"dishes":              CollectionDishes,
	"boms":                CollectionBOMs,
	"ingredients":         CollectionIngredients,
	"inventorySnapshots":  CollectionInventorySnapshots,
	"inventory_snapshots": CollectionInventorySnapshots,
	"staff":               CollectionStaff,
	"wasteEvents":         CollectionWasteEvents,
	"waste_events":        CollectionWasteEvents,
	"trainingModules":     CollectionTrainingModules,
	"training_modules":    CollectionTrainingModules,
}

// DecodeResult is the outcome of DecodeCollections.
type DecodeResult struct {
	Collections RawCollections
	// Repaired is set when the payload was not valid JSON and had to be
	// passed through jsonrepair before it could be decoded.
	Repaired bool
	// SkippedElements counts array elements that were not JSON objects.
	SkippedElements int
}

// DecodeCollections decodes a raw collections payload for mode.
//
// The payload may be the collections object itself or the backend's
// {"data": {...}} envelope. Unknown top-level keys are ignored, and so are
// the full-only collections and relations in basic mode, whatever their
// shape. A collection the mode requires that is not an array, a relations
// value that is not an object, or a relation entry that is not an array is
// reported as ErrInputShape. Array elements that are not objects are skipped.
func DecodeCollections(data []byte, mode Mode) (DecodeResult, error) {
	var res DecodeResult

	if !mode.Valid() {
		return res, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	full := mode == ModeFull

	top, repaired, err := unmarshalLenient(data)
	if err != nil {
		return res, err
	}
	res.Repaired = repaired

	obj, ok := top.(map[string]any)
	if !ok {
		return res, fmt.Errorf("%w: payload is %s, want object", ErrInputShape, describe(top))
	}
	obj = unwrapEnvelope(obj)

	for key, value := range obj {
		if key == CollectionRelations {
			if !full {
				continue
			}
			relations, skipped, err := decodeRelations(value)
			if err != nil {
				return res, err
			}
			res.Collections.Relations = relations
			res.SkippedElements += skipped
			continue
		}

		name, known := collectionAliases[key]
		if !known || (!full && !slices.Contains(BasicCollections, name)) {
			continue
		}
		records, skipped, err := decodeRecords(name, value)
		if err != nil {
			return res, err
		}
		res.SkippedElements += skipped
		if existing := res.Collections.Collection(name); len(existing) > 0 {
			// camelCase and snake_case keys both present: keep them in
			// a stable order so first-occurrence semantics do not depend
			// on map iteration.
			if strings.Contains(key, "_") {
				records = append(existing, records...)
			} else {
				records = append(records, existing...)
			}
		}
		res.Collections.SetCollection(name, records)
	}

	return res, nil
}

func unmarshalLenient(data []byte) (any, bool, error) {
	var top any
	err := json.Unmarshal(data, &top)
	if err == nil {
		return top, false, nil
	}

	input := strings.TrimSpace(string(data))
	if input == "" {
		return nil, false, fmt.Errorf("%w: empty payload", ErrInputShape)
	}

	repaired, rerr := jsonrepair.JSONRepair(input)
	if rerr != nil {
		return nil, false, fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &top); err != nil {
		return nil, false, fmt.Errorf("failed to decode repaired payload: %w", err)
	}
	return top, true, nil
}

func unwrapEnvelope(obj map[string]any) map[string]any {
	inner, ok := obj["data"].(map[string]any)
	if !ok {
		return obj
	}
	for key := range obj {
		if _, known := collectionAliases[key]; known || key == CollectionRelations {
			return obj
		}
	}
	return inner
}

func decodeRecords(name string, value any) ([]RawRecord, int, error) {
	if value == nil {
		return nil, 0, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, 0, fmt.Errorf("%w: collection %q is %s, want array", ErrInputShape, name, describe(value))
	}

	records := make([]RawRecord, 0, len(items))
	skipped := 0
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		records = append(records, RawRecord(m))
	}
	return records, skipped, nil
}

func decodeRelations(value any) (map[string][]RawRecord, int, error) {
	if value == nil {
		return nil, 0, nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, 0, fmt.Errorf("%w: relations is %s, want object", ErrInputShape, describe(value))
	}

	relations := make(map[string][]RawRecord, len(obj))
	skipped := 0
	for relType, entries := range obj {
		records, n, err := decodeRecords("relations."+relType, entries)
		if err != nil {
			return nil, 0, err
		}
		skipped += n
		relations[relType] = records
	}
	return relations, skipped, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}
