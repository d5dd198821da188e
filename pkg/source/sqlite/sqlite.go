// Package sqlite stores collections snapshots in a local SQLite file so that
// graphs can be assembled offline.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	scope TEXT NOT NULL DEFAULT '',
	collection TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_scope ON records (scope, collection, seq);

CREATE TABLE IF NOT EXISTS relations (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	scope TEXT NOT NULL DEFAULT '',
	relation_type TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relations_scope ON relations (scope, relation_type, seq);
`

// SQLiteSource is a record source over a single SQLite database file.
type SQLiteSource struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(ctx context.Context, path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Fetch implements source.RecordSource.
func (s *SQLiteSource) Fetch(ctx context.Context, req source.Request) (common.RawCollections, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := common.BasicCollections
	if req.Mode == common.ModeFull {
		names = common.FullCollections
	}

	var raw common.RawCollections
	for _, name := range names {
		records, err := s.loadCollection(ctx, name, req.Scope)
		if err != nil {
			return common.RawCollections{}, fmt.Errorf("failed to load %s: %w", name, err)
		}
		raw.SetCollection(name, records)
	}
	if req.Mode == common.ModeFull {
		relations, err := s.loadRelations(ctx, req.Scope)
		if err != nil {
			return common.RawCollections{}, fmt.Errorf("failed to load relations: %w", err)
		}
		raw.Relations = relations
	}
	return raw, nil
}

func (s *SQLiteSource) loadCollection(ctx context.Context, collection, scope string) ([]common.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND (? = '' OR scope = ?) ORDER BY seq`,
		collection, scope, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []common.RawRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec common.RawRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("corrupt record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteSource) loadRelations(ctx context.Context, scope string) (map[string][]common.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT relation_type, data FROM relations WHERE (? = '' OR scope = ?) ORDER BY seq`,
		scope, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relations := map[string][]common.RawRecord{}
	for rows.Next() {
		var relationType, data string
		if err := rows.Scan(&relationType, &data); err != nil {
			return nil, err
		}
		var pair common.RawRecord
		if err := json.Unmarshal([]byte(data), &pair); err != nil {
			return nil, fmt.Errorf("corrupt relation: %w", err)
		}
		relations[relationType] = append(relations[relationType], pair)
	}
	return relations, rows.Err()
}

// ImportStats reports what Import wrote.
type ImportStats struct {
	Records      int
	Relations    int
	SkippedPairs int
}

// Import writes raw under scope in a single transaction. When replace is set
// the scope is cleared first. Relation pairs without both endpoint ids are
// skipped.
func (s *SQLiteSource) Import(ctx context.Context, scope string, raw common.RawCollections, replace bool) (ImportStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats ImportStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE scope = ?`, scope); err != nil {
			return stats, fmt.Errorf("failed to clear records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE scope = ?`, scope); err != nil {
			return stats, fmt.Errorf("failed to clear relations: %w", err)
		}
	}

	recordStmt, err := tx.PrepareContext(ctx, `INSERT INTO records (scope, collection, data) VALUES (?, ?, ?)`)
	if err != nil {
		return stats, err
	}
	defer recordStmt.Close()

	for _, name := range common.FullCollections {
		for _, rec := range raw.Collection(name) {
			data, err := json.Marshal(rec)
			if err != nil {
				return stats, fmt.Errorf("failed to encode %s record: %w", name, err)
			}
			if _, err := recordStmt.ExecContext(ctx, scope, name, string(data)); err != nil {
				return stats, fmt.Errorf("failed to insert %s record: %w", name, err)
			}
			stats.Records++
		}
	}

	relationStmt, err := tx.PrepareContext(ctx, `INSERT INTO relations (scope, relation_type, data) VALUES (?, ?, ?)`)
	if err != nil {
		return stats, err
	}
	defer relationStmt.Close()

	for _, relationType := range slices.Sorted(maps.Keys(raw.Relations)) {
		for _, pair := range raw.Relations[relationType] {
			from, to, annotation, ok := common.SplitRelationPair(pair)
			if !ok {
				stats.SkippedPairs++
				continue
			}
			data, err := json.Marshal(common.JoinRelationPair(from, to, annotation))
			if err != nil {
				return stats, fmt.Errorf("failed to encode %s pair: %w", relationType, err)
			}
			if _, err := relationStmt.ExecContext(ctx, scope, relationType, string(data)); err != nil {
				return stats, fmt.Errorf("failed to insert %s pair: %w", relationType, err)
			}
			stats.Relations++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}

	logger.Info("[Source] Imported collections into sqlite", "scope", scope, "records", stats.Records, "relations", stats.Relations, "skipped_pairs", stats.SkippedPairs)
	return stats, nil
}

// Scopes lists the scopes that hold at least one record.
func (s *SQLiteSource) Scopes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT scope FROM records ORDER BY scope`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}
