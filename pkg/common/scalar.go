package common

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ScalarString renders an id-like attribute value as a string. Strings are
// trimmed, numbers use their shortest decimal form. Empty strings, nil,
// booleans and composite values yield false.
func ScalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return ScalarString(float64(t))
	case json.Number:
		s := t.String()
		return s, s != ""
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	}
	return "", false
}

// SplitRelationPair separates a relation pair into its endpoint ids and the
// remaining annotation fields. ok is false when either id is missing.
func SplitRelationPair(pair RawRecord) (from, to string, annotation RawRecord, ok bool) {
	from, okFrom := ScalarString(pair["from_id"])
	to, okTo := ScalarString(pair["to_id"])
	if !okFrom || !okTo {
		return "", "", nil, false
	}
	for k, v := range pair {
		if k == "from_id" || k == "to_id" {
			continue
		}
		if annotation == nil {
			annotation = RawRecord{}
		}
		annotation[k] = v
	}
	return from, to, annotation, true
}

// JoinRelationPair is the inverse of SplitRelationPair.
func JoinRelationPair(from, to string, annotation RawRecord) RawRecord {
	pair := make(RawRecord, len(annotation)+2)
	for k, v := range annotation {
		pair[k] = v
	}
	pair["from_id"] = from
	pair["to_id"] = to
	return pair
}
