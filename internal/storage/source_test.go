package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/source"
	sourceio "github.com/kitchenlens/relgraph/pkg/source/io"
	"github.com/kitchenlens/relgraph/pkg/source/sqlite"
	"github.com/kitchenlens/relgraph/pkg/source/web"
)

func TestNewRecordSource(t *testing.T) {
	ctx := context.Background()

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "payload.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"stores":[{"store_id":"S1"}]}`), 0o644))
		t.Setenv("RECORD_SOURCE", "file")
		t.Setenv("RECORD_FILE", path)

		src, closeFn, err := NewRecordSource(ctx)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &sourceio.FileSource{}, src)

		raw, err := src.Fetch(ctx, source.Request{Mode: common.ModeBasic})
		require.NoError(t, err)
		assert.Len(t, raw.Stores, 1)
	})

	t.Run("FileRequiresPath", func(t *testing.T) {
		t.Setenv("RECORD_SOURCE", "file")
		t.Setenv("RECORD_FILE", "")
		_, closeFn, err := NewRecordSource(ctx)
		assert.Error(t, err)
		assert.NotNil(t, closeFn)
	})

	t.Run("SQLite", func(t *testing.T) {
		t.Setenv("RECORD_SOURCE", "SQLite")
		t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "snap.db"))
		src, closeFn, err := NewRecordSource(ctx)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &sqlite.SQLiteSource{}, src)
	})

	t.Run("UpstreamIsDefault", func(t *testing.T) {
		t.Setenv("RECORD_SOURCE", "")
		t.Setenv("UPSTREAM_URL", "http://dashboard.internal:8080")
		src, closeFn, err := NewRecordSource(ctx)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &web.UpstreamSource{}, src)
	})

	t.Run("PostgresRequiresURL", func(t *testing.T) {
		t.Setenv("RECORD_SOURCE", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, _, err := NewRecordSource(ctx)
		assert.Error(t, err)
	})

	t.Run("Unknown", func(t *testing.T) {
		t.Setenv("RECORD_SOURCE", "mongo")
		_, _, err := NewRecordSource(ctx)
		assert.Error(t, err)
	})
}
