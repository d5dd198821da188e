package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/source"
	srcio "github.com/kitchenlens/relgraph/pkg/source/io"
	"github.com/kitchenlens/relgraph/pkg/source/sqlite"
)

// addSourceFlags registers the flags shared by commands that read records.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "Payload file or directory of <scope>.json files, - for stdin")
	cmd.Flags().String("sqlite", "", "Read from a sqlite snapshot instead of a file")
	cmd.Flags().String("scope", "", "Tenant or store window to load")
	cmd.MarkFlagsMutuallyExclusive("input", "sqlite")
}

// loadCollections reads the raw collections selected by the source flags.
func loadCollections(ctx context.Context, cmd *cobra.Command, mode common.Mode) (common.RawCollections, error) {
	input, _ := cmd.Flags().GetString("input")
	dbPath, _ := cmd.Flags().GetString("sqlite")
	scope, _ := cmd.Flags().GetString("scope")

	if !source.ValidScope(scope) {
		return common.RawCollections{}, fmt.Errorf("invalid scope %q", scope)
	}
	req := source.Request{Mode: mode, Scope: scope}

	switch {
	case input == "-":
		return readCollections(cmd.InOrStdin(), cmd.ErrOrStderr(), mode)
	case input != "":
		return srcio.NewFileSource(input).Fetch(ctx, req)
	case dbPath != "":
		db, err := sqlite.Open(ctx, dbPath)
		if err != nil {
			return common.RawCollections{}, fmt.Errorf("failed to open sqlite snapshot: %w", err)
		}
		defer db.Close()
		return db.Fetch(ctx, req)
	default:
		return common.RawCollections{}, errors.New("one of --input or --sqlite is required")
	}
}

func readCollections(r io.Reader, warn io.Writer, mode common.Mode) (common.RawCollections, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return common.RawCollections{}, fmt.Errorf("failed to read input: %w", err)
	}
	decoded, err := common.DecodeCollections(data, mode)
	if err != nil {
		return common.RawCollections{}, err
	}
	if decoded.Repaired {
		fmt.Fprintln(warn, "warning: input was not valid JSON and has been repaired")
	}
	return decoded.Collections, nil
}
