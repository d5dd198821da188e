package pgx

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pgxv5 "github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"
)

//go:embed migrations/*.sql
var migrations embed.FS

// tables maps collection names to the tables they are stored in.
var tables = map[string]string{
	common.CollectionStores:             "stores",
	common.CollectionDishes:             "dishes",
	common.CollectionBOMs:               "boms",
	common.CollectionIngredients:        "ingredients",
	common.CollectionInventorySnapshots: "inventory_snapshots",
	common.CollectionStaff:              "staff",
	common.CollectionWasteEvents:        "waste_events",
	common.CollectionTrainingModules:    "training_modules",
}

type pgxIConn interface {
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// PostgresSource loads collections from PostgreSQL. Every collection lives in
// its own (seq, tenant_id, data jsonb) table; relation pairs share one
// relations table. Rows are returned in insertion order.
type PostgresSource struct {
	conn        pgxIConn
	maxParallel int
}

type PostgresSourceOption func(*PostgresSource)

// WithMaxParallel bounds the number of collections loaded concurrently.
func WithMaxParallel(n int) PostgresSourceOption {
	return func(s *PostgresSource) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// NewPostgresSource creates a source over an existing pool or connection.
func NewPostgresSource(conn pgxIConn, opts ...PostgresSourceOption) *PostgresSource {
	s := &PostgresSource{conn: conn, maxParallel: 4}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Migrate applies the embedded schema to the database at databaseURL.
func Migrate(databaseURL string) error {
	d, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Fetch implements source.RecordSource. Collections outside the requested
// mode are not queried.
func (s *PostgresSource) Fetch(ctx context.Context, req source.Request) (common.RawCollections, error) {
	names := common.BasicCollections
	if req.Mode == common.ModeFull {
		names = common.FullCollections
	}

	var (
		raw common.RawCollections
		mu  sync.Mutex
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for _, name := range names {
		g.Go(func() error {
			records, err := s.loadCollection(gCtx, tables[name], req.Scope)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", name, err)
			}
			mu.Lock()
			raw.SetCollection(name, records)
			mu.Unlock()
			return nil
		})
	}
	if req.Mode == common.ModeFull {
		g.Go(func() error {
			relations, err := s.loadRelations(gCtx, req.Scope)
			if err != nil {
				return fmt.Errorf("failed to load relations: %w", err)
			}
			mu.Lock()
			raw.Relations = relations
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return common.RawCollections{}, err
	}

	logger.Debug("[Source] Loaded collections from postgres", "mode", req.Mode, "scope", req.Scope)
	return raw, nil
}

func (s *PostgresSource) loadCollection(ctx context.Context, table, scope string) ([]common.RawRecord, error) {
	// table comes from the fixed tables map, never from input.
	query := "SELECT data FROM " + table + " WHERE ($1 = '' OR tenant_id = $1) ORDER BY seq"
	rows, err := s.conn.Query(ctx, query, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []common.RawRecord{}
	for rows.Next() {
		var data map[string]any
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		records = append(records, common.RawRecord(data))
	}
	return records, rows.Err()
}

func (s *PostgresSource) loadRelations(ctx context.Context, scope string) (map[string][]common.RawRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT relation_type, from_id, to_id, annotation
		FROM relations
		WHERE ($1 = '' OR tenant_id = $1)
		ORDER BY seq`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relations := map[string][]common.RawRecord{}
	for rows.Next() {
		var (
			relationType, from, to string
			annotation             map[string]any
		)
		if err := rows.Scan(&relationType, &from, &to, &annotation); err != nil {
			return nil, err
		}
		relations[relationType] = append(relations[relationType], common.JoinRelationPair(from, to, annotation))
	}
	return relations, rows.Err()
}

// ImportStats reports what Import wrote.
type ImportStats struct {
	Records       int
	Relations     int
	SkippedPairs  int
	RelationTypes []string
}

// Import writes raw under scope in a single transaction. Relation pairs
// without both endpoint ids are skipped.
func (s *PostgresSource) Import(ctx context.Context, scope string, raw common.RawCollections) (ImportStats, error) {
	var stats ImportStats

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback(ctx)

	batch := &pgxv5.Batch{}
	for _, name := range common.FullCollections {
		for _, rec := range raw.Collection(name) {
			data, err := json.Marshal(util.SanitizePostgresValue(map[string]any(rec)))
			if err != nil {
				return stats, fmt.Errorf("failed to encode %s record: %w", name, err)
			}
			batch.Queue("INSERT INTO "+tables[name]+" (tenant_id, data) VALUES ($1, $2::jsonb)", scope, string(data))
			stats.Records++
		}
	}

	stats.RelationTypes = slices.Sorted(maps.Keys(raw.Relations))
	for _, relationType := range stats.RelationTypes {
		for _, pair := range raw.Relations[relationType] {
			from, to, annotation, ok := common.SplitRelationPair(pair)
			if !ok {
				stats.SkippedPairs++
				continue
			}
			var annotationJSON *string
			if annotation != nil {
				b, err := json.Marshal(util.SanitizePostgresValue(map[string]any(annotation)))
				if err != nil {
					return stats, fmt.Errorf("failed to encode %s annotation: %w", relationType, err)
				}
				str := string(b)
				annotationJSON = &str
			}
			batch.Queue(
				"INSERT INTO relations (tenant_id, relation_type, from_id, to_id, annotation) VALUES ($1, $2, $3, $4, $5::jsonb)",
				scope, relationType, util.SanitizePostgresText(from), util.SanitizePostgresText(to), annotationJSON,
			)
			stats.Relations++
		}
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return stats, fmt.Errorf("failed to import records: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return stats, err
	}

	logger.Info("[Source] Imported collections into postgres", "scope", scope, "records", stats.Records, "relations", stats.Relations, "skipped_pairs", stats.SkippedPairs)
	return stats, nil
}

// DeleteScope removes every record and relation stored under scope.
func (s *PostgresSource) DeleteScope(ctx context.Context, scope string) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, name := range common.FullCollections {
		if _, err := tx.Exec(ctx, "DELETE FROM "+tables[name]+" WHERE tenant_id = $1", scope); err != nil {
			return fmt.Errorf("failed to clear %s: %w", name, err)
		}
	}
	if _, err := tx.Exec(ctx, "DELETE FROM relations WHERE tenant_id = $1", scope); err != nil {
		return fmt.Errorf("failed to clear relations: %w", err)
	}
	return tx.Commit(ctx)
}
