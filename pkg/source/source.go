package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kitchenlens/relgraph/pkg/common"
)

// ErrNotFound is returned when a source has no payload for the requested
// scope and mode.
var ErrNotFound = errors.New("source: no records for scope")

// Request selects which records a source should load.
//
// Scope narrows the load to one tenant or store window. An empty scope means
// everything the source holds.
type Request struct {
	Mode  common.Mode
	Scope string
}

// ModeOrBasic returns the request mode, treating an empty mode as basic.
func (r Request) ModeOrBasic() common.Mode {
	if r.Mode == "" {
		return common.ModeBasic
	}
	return r.Mode
}

// FetchTimeout bounds a single shared fetch. Callers that give up earlier
// stop waiting without cancelling the fetch for the others.
const FetchTimeout = 30 * time.Second

// RecordSource loads the raw collections the graph is assembled from.
// Implementations must be safe for concurrent use.
type RecordSource interface {
	Fetch(ctx context.Context, req Request) (common.RawCollections, error)
}

// Func adapts an ordinary function to a RecordSource.
type Func func(ctx context.Context, req Request) (common.RawCollections, error)

func (f Func) Fetch(ctx context.Context, req Request) (common.RawCollections, error) {
	return f(ctx, req)
}

// Static always returns the same collections. Useful for tests and for
// payloads handed over inline.
type Static common.RawCollections

func (s Static) Fetch(_ context.Context, _ Request) (common.RawCollections, error) {
	return common.RawCollections(s), nil
}

// CacheKey identifies a request for request collapsing.
func CacheKey(req Request) string {
	return fmt.Sprintf("%s|%s", req.Mode, req.Scope)
}

// ScopeOrDefault returns the scope used in object keys and file names.
func ScopeOrDefault(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return "default"
	}
	return scope
}

// ValidScope reports whether a scope is safe to embed into paths and keys.
func ValidScope(scope string) bool {
	if len(scope) > 128 {
		return false
	}
	for _, r := range scope {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return !strings.Contains(scope, "..")
}
