package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"
	sourceio "github.com/kitchenlens/relgraph/pkg/source/io"
	sourcepgx "github.com/kitchenlens/relgraph/pkg/source/pgx"
	sources3 "github.com/kitchenlens/relgraph/pkg/source/s3"
	"github.com/kitchenlens/relgraph/pkg/source/sqlite"
	"github.com/kitchenlens/relgraph/pkg/source/web"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source kinds accepted in RECORD_SOURCE.
const (
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceS3       = "s3"
	SourceUpstream = "upstream"
	SourceFile     = "file"
)

// NewRecordSource builds the record source selected by RECORD_SOURCE
// (default "upstream"). The returned close function releases any pool or
// database handle and is never nil.
func NewRecordSource(ctx context.Context) (source.RecordSource, func(), error) {
	kind := strings.ToLower(util.GetEnvString("RECORD_SOURCE", SourceUpstream))
	noop := func() {}

	switch kind {
	case SourcePostgres:
		dsn := util.GetEnv("DATABASE_URL")
		if dsn == "" {
			return nil, noop, fmt.Errorf("DATABASE_URL is required for the postgres source")
		}
		if util.GetEnvBool("DATABASE_MIGRATE", true) {
			if err := sourcepgx.Migrate(dsn); err != nil {
				return nil, noop, err
			}
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("[Storage] Using postgres record source")
		return sourcepgx.NewPostgresSource(pool), pool.Close, nil

	case SourceSQLite:
		src, err := sqlite.Open(ctx, util.GetEnvString("SQLITE_PATH", "relgraph.db"))
		if err != nil {
			return nil, noop, err
		}
		logger.Info("[Storage] Using sqlite record source")
		return src, func() { _ = src.Close() }, nil

	case SourceS3:
		client, err := NewS3Client(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create s3 client: %w", err)
		}
		logger.Info("[Storage] Using s3 record source", "bucket", util.GetEnv("AWS_BUCKET"))
		return sources3.NewS3SourceWithClient(util.GetEnv("AWS_BUCKET"), util.GetEnvString("SNAPSHOT_PREFIX", "graphs"), client), noop, nil

	case SourceFile:
		path := util.GetEnv("RECORD_FILE")
		if path == "" {
			return nil, noop, fmt.Errorf("RECORD_FILE is required for the file source")
		}
		logger.Info("[Storage] Using file record source", "path", path)
		return sourceio.NewFileSource(path), noop, nil

	case SourceUpstream:
		src, err := web.NewUpstreamSource(web.NewUpstreamSourceParams{
			BaseURL:   util.GetEnv("UPSTREAM_URL"),
			BasicPath: util.GetEnv("UPSTREAM_BASIC_PATH"),
			FullPath:  util.GetEnv("UPSTREAM_FULL_PATH"),
			Token:     util.GetEnv("UPSTREAM_TOKEN"),
			MaxTries:  util.GetEnvInt("UPSTREAM_MAX_TRIES", 3),
		})
		if err != nil {
			return nil, noop, err
		}
		logger.Info("[Storage] Using upstream record source", "url", util.GetEnv("UPSTREAM_URL"))
		return src, noop, nil
	}

	return nil, noop, fmt.Errorf("unknown RECORD_SOURCE %q", kind)
}
