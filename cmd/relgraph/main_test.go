package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenlens/relgraph/pkg/graph"
)

const payload = `{
  "stores": [{"store_id": "S1", "name": "Central"}, {"store_id": "S2", "name": "Harbor"}],
  "dishes": [{"dish_id": "D1", "store_id": "S1", "name": "Ramen", "price": 12.5}],
  "staff": [{"staff_id": "P1", "store_id": "S1", "name": "Aiko"}],
  "relations": {"similar_to": [{"from_id": "S1", "to_id": "S2", "score": 0.87}]}
}`

func init() {
	color.NoColor = true
}

func writePayload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "relgraph version "+version+"\n", out)

	out, _, err = run(t, "version", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"`+version+`"}`, out)
}

func TestAssembleJSON(t *testing.T) {
	path := writePayload(t)

	out, _, err := run(t, "assemble", "--input", path)
	require.NoError(t, err)
	var g graph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 1)

	out, _, err = run(t, "assemble", "--input", path, "--mode", "full", "--pretty")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 4)
	assert.True(t, strings.HasPrefix(out, "{\n  "))
}

func TestAssembleYAMLAndSummary(t *testing.T) {
	path := writePayload(t)

	out, _, err := run(t, "assemble", "-i", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "nodes:")
	assert.Contains(t, out, "symbol_size:")

	out, _, err = run(t, "assemble", "-i", path, "-m", "full", "-f", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Graph summary")
	assert.Contains(t, out, "similar_to")
	assert.Contains(t, out, "Staff")
}

func TestAssembleStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(`{"stores":[{"store_id":"S1",}]}`))
	cmd.SetArgs([]string{"assemble", "--input", "-"})
	require.NoError(t, cmd.Execute())

	var g graph.Graph
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &g))
	assert.Len(t, g.Nodes, 1)
	assert.Contains(t, stderr.String(), "repaired")
}

func TestCommandsUseExecuteContext(t *testing.T) {
	path := writePayload(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, args := range [][]string{
		{"assemble", "--input", path},
		{"inspect", "Store:S1", "--input", path},
	} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		assert.ErrorIs(t, err, context.Canceled, args[0])
	}
}

func TestAssembleErrors(t *testing.T) {
	path := writePayload(t)

	tests := []struct {
		name string
		args []string
	}{
		{"NoSource", []string{"assemble"}},
		{"UnknownMode", []string{"assemble", "-i", path, "--mode", "partial"}},
		{"UnknownFormat", []string{"assemble", "-i", path, "--format", "xml"}},
		{"BadScope", []string{"assemble", "-i", path, "--scope", "../etc"}},
		{"BothSources", []string{"assemble", "-i", path, "--sqlite", "x.db"}},
		{"MissingFile", []string{"assemble", "-i", filepath.Join(t.TempDir(), "nope.json")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestInspect(t *testing.T) {
	path := writePayload(t)

	out, _, err := run(t, "inspect", "Dish:D1", "-i", path)
	require.NoError(t, err)
	assert.Contains(t, out, "name: Ramen")
	assert.Contains(t, out, "price: 12.5")
	assert.Contains(t, out, "Store:S1")

	// staff only exists in the full graph
	out, _, err = run(t, "inspect", "Staff:P1", "-i", path, "--json")
	require.NoError(t, err)
	var detail nodeDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, graph.KindStaff, detail.Kind)

	_, _, err = run(t, "inspect", "Staff:P1", "-i", path, "--mode", "basic")
	assert.Error(t, err)

	_, _, err = run(t, "inspect", "Truck:T1", "-i", path)
	assert.Error(t, err)
}

func TestImportSQLite(t *testing.T) {
	path := writePayload(t)
	db := filepath.Join(t.TempDir(), "relgraph.db")

	out, _, err := run(t, "import", "--sqlite", db, "--input", path, "--scope", "north")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 4 records and 1 relation pairs")

	// importing again with --replace keeps one copy of each record
	_, _, err = run(t, "import", "--sqlite", db, "--input", path, "--scope", "north", "--replace")
	require.NoError(t, err)

	out, _, err = run(t, "assemble", "--sqlite", db, "--scope", "north", "--mode", "full")
	require.NoError(t, err)
	var g graph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 4)

	summary := graph.Summarize(&g)
	assert.Equal(t, 1, summary.ByRelation["similar_to"])
}

func TestImportRequiresTarget(t *testing.T) {
	path := writePayload(t)

	_, _, err := run(t, "import", "--input", path)
	assert.Error(t, err)

	_, _, err = run(t, "import", "--sqlite", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}
