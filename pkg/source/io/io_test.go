package io

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/source"
)

const payload = `{
  "data": {
    "stores": [{"store_id": "S1", "name": "Central"}],
    "dishes": [{"dish_id": "D1", "store_id": "S1", "name": "Ramen"}],
    "boms": [],
    "ingredients": [],
    "inventorySnapshots": []
  }
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileSourceSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	writeFile(t, path, payload)

	src := NewFileSource(path)
	raw, err := src.Fetch(context.Background(), source.Request{Mode: common.ModeBasic, Scope: "ignored"})
	require.NoError(t, err)
	require.Len(t, raw.Stores, 1)
	assert.Equal(t, "Central", raw.Stores[0]["name"])
	require.Len(t, raw.Dishes, 1)
}

func TestFileSourceDirectoryByScope(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default.json"), `{"stores":[{"store_id":"S0"}]}`)
	writeFile(t, filepath.Join(dir, "north.json"), `{"stores":[{"store_id":"S9"}]}`)

	src := NewFileSource(dir)

	raw, err := src.Fetch(context.Background(), source.Request{Mode: common.ModeBasic})
	require.NoError(t, err)
	assert.Equal(t, "S0", raw.Stores[0]["store_id"])

	raw, err = src.Fetch(context.Background(), source.Request{Mode: common.ModeBasic, Scope: "north"})
	require.NoError(t, err)
	assert.Equal(t, "S9", raw.Stores[0]["store_id"])

	_, err = src.Fetch(context.Background(), source.Request{Mode: common.ModeBasic, Scope: "south"})
	assert.ErrorIs(t, err, source.ErrNotFound)

	_, err = src.Fetch(context.Background(), source.Request{Mode: common.ModeBasic, Scope: "../etc"})
	assert.Error(t, err)
}

func TestFileSourceErrors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).
		Fetch(context.Background(), source.Request{})
	assert.ErrorIs(t, err, source.ErrNotFound)

	path := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, path, `{"stores": {"store_id": "S1"}}`)
	_, err = NewFileSource(path).Fetch(context.Background(), source.Request{})
	assert.ErrorIs(t, err, common.ErrInputShape)
}

func TestFileSourceRepairsTrailingComma(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loose.json")
	writeFile(t, path, `{"stores": [{"store_id": "S1", "name": "Central",},]}`)

	raw, err := NewFileSource(path).Fetch(context.Background(), source.Request{})
	require.NoError(t, err)
	require.Len(t, raw.Stores, 1)
	assert.Equal(t, "Central", raw.Stores[0]["name"])
}

func TestFileSourceDecodesPerMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	writeFile(t, path, `{"stores": [{"store_id": "S1"}], "staff": {}, "relations": "n/a"}`)
	src := NewFileSource(path)

	raw, err := src.Fetch(context.Background(), source.Request{Mode: common.ModeBasic})
	require.NoError(t, err)
	assert.Len(t, raw.Stores, 1)

	_, err = src.Fetch(context.Background(), source.Request{Mode: common.ModeFull})
	assert.ErrorIs(t, err, common.ErrInputShape)
}

func TestFileSourceCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	writeFile(t, path, payload)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource(path).Fetch(ctx, source.Request{Mode: common.ModeBasic})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSourceConcurrentFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	writeFile(t, path, payload)
	src := NewFileSource(path)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = src.Fetch(context.Background(), source.Request{Mode: common.ModeFull})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
