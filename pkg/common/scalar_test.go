package common

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalarString(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{" S1 ", "S1", true},
		{"", "", false},
		{float64(7), "7", true},
		{3.5, "3.5", true},
		{json.Number("12"), "12", true},
		{int64(-4), "-4", true},
		{uint8(9), "9", true},
		{math.NaN(), "", false},
		{true, "", false},
		{nil, "", false},
		{map[string]any{"id": 1}, "", false},
	}
	for _, tc := range tests {
		got, ok := ScalarString(tc.in)
		assert.Equal(t, tc.ok, ok, "ScalarString(%#v)", tc.in)
		assert.Equal(t, tc.want, got, "ScalarString(%#v)", tc.in)
	}
}

func TestRelationPairRoundTrip(t *testing.T) {
	from, to, annotation, ok := SplitRelationPair(RawRecord{"from_id": "S1", "to_id": float64(2), "score": 0.87})
	assert.True(t, ok)
	assert.Equal(t, "S1", from)
	assert.Equal(t, "2", to)
	assert.Equal(t, RawRecord{"score": 0.87}, annotation)

	assert.Equal(t,
		RawRecord{"from_id": "S1", "to_id": "2", "score": 0.87},
		JoinRelationPair(from, to, annotation),
	)

	_, _, annotation, ok = SplitRelationPair(RawRecord{"from_id": "S1", "to_id": "S2"})
	assert.True(t, ok)
	assert.Nil(t, annotation)

	_, _, _, ok = SplitRelationPair(RawRecord{"from_id": "S1"})
	assert.False(t, ok)
}
