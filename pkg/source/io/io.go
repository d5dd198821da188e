package io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"

	"golang.org/x/sync/singleflight"
)

// FileSource reads collections payloads from the local filesystem.
//
// When path names a directory, the payload for a request is read from
// <path>/<scope>.json, with "default" standing in for an empty scope.
// Otherwise path is read as-is for every request.
type FileSource struct {
	path  string
	group singleflight.Group
}

// NewFileSource creates a filesystem-backed source rooted at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) resolve(req source.Request) (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", source.ErrNotFound, s.path)
		}
		return "", err
	}
	if !info.IsDir() {
		return s.path, nil
	}
	if !source.ValidScope(req.Scope) {
		return "", fmt.Errorf("invalid scope %q", req.Scope)
	}
	return filepath.Join(s.path, source.ScopeOrDefault(req.Scope)+".json"), nil
}

// Fetch implements source.RecordSource.
func (s *FileSource) Fetch(ctx context.Context, req source.Request) (common.RawCollections, error) {
	path, err := s.resolve(req)
	if err != nil {
		return common.RawCollections{}, err
	}

	raw, _, err := util.DoShared(ctx, &s.group, path+"|"+string(req.ModeOrBasic()), source.FetchTimeout, func(ctx context.Context) (common.RawCollections, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return common.RawCollections{}, fmt.Errorf("%w: %s", source.ErrNotFound, path)
			}
			return common.RawCollections{}, fmt.Errorf("failed to read payload: %w", err)
		}

		decoded, err := common.DecodeCollections(data, req.ModeOrBasic())
		if err != nil {
			return common.RawCollections{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if decoded.Repaired {
			logger.Warn("[Source] Payload file was not valid JSON, repaired", "path", path)
		}
		return decoded.Collections, nil
	})
	if err != nil {
		return common.RawCollections{}, err
	}
	return raw, nil
}
