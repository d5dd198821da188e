package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlens/relgraph/pkg/common"
)

func TestStaticAndFunc(t *testing.T) {
	raw := common.RawCollections{
		Stores: []common.RawRecord{{"store_id": "S1", "name": "Central"}},
	}

	got, err := Static(raw).Fetch(context.Background(), Request{Mode: common.ModeBasic})
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	var seen Request
	f := Func(func(_ context.Context, req Request) (common.RawCollections, error) {
		seen = req
		return raw, nil
	})
	_, err = f.Fetch(context.Background(), Request{Mode: common.ModeFull, Scope: "north"})
	require.NoError(t, err)
	assert.Equal(t, Request{Mode: common.ModeFull, Scope: "north"}, seen)
}

func TestScopeHelpers(t *testing.T) {
	assert.Equal(t, "default", ScopeOrDefault(""))
	assert.Equal(t, "default", ScopeOrDefault("  "))
	assert.Equal(t, "north", ScopeOrDefault("north"))

	assert.True(t, ValidScope(""))
	assert.True(t, ValidScope("tenant-42_eu.west"))
	assert.False(t, ValidScope("../etc"))
	assert.False(t, ValidScope("a/b"))
	assert.False(t, ValidScope("with space"))

	assert.NotEqual(t,
		CacheKey(Request{Mode: common.ModeBasic, Scope: "a"}),
		CacheKey(Request{Mode: common.ModeFull, Scope: "a"}),
	)
}

func TestRequestModeOrBasic(t *testing.T) {
	assert.Equal(t, common.ModeBasic, Request{}.ModeOrBasic())
	assert.Equal(t, common.ModeFull, Request{Mode: common.ModeFull}.ModeOrBasic())
}
