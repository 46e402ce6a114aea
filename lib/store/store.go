// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/wyn0001/ai-collab-mcp/lib/clock"
	"github.com/wyn0001/ai-collab-mcp/lib/codec"
	"github.com/wyn0001/ai-collab-mcp/lib/fault"
	"github.com/wyn0001/ai-collab-mcp/lib/sqlitepool"
)

// Collection identifies one record namespace.
type Collection string

const (
	CollectionTasks      Collection = "tasks"
	CollectionMissions   Collection = "missions"
	CollectionPlans      Collection = "plans"
	CollectionLoopStates Collection = "loop_states"
)

// Collections lists every collection in hydration order.
var Collections = []Collection{
	CollectionTasks,
	CollectionMissions,
	CollectionPlans,
	CollectionLoopStates,
}

// Valid reports whether the collection is a recognized value.
func (c Collection) Valid() bool {
	switch c {
	case CollectionTasks, CollectionMissions, CollectionPlans, CollectionLoopStates:
		return true
	}
	return false
}

// Record is one stored row: the raw CBOR content plus the revision
// the optimistic-write check needs.
type Record struct {
	Collection Collection
	ID         string
	Revision   int64
	Content    []byte
}

// Decode unmarshals the record's content. An unparseable record is
// corrupt, never empty.
func (r Record) Decode(out any) error {
	if err := codec.Unmarshal(r.Content, out); err != nil {
		return fault.Corruptf(string(r.Collection), r.ID, "decode", err)
	}
	return nil
}

// Config holds the parameters for opening a record store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Clock provides timestamps for snapshot headers.
	Clock clock.Clock

	// Logger receives operational messages.
	Logger *slog.Logger
}

// Store is the SQLite-backed record store. Safe for concurrent use;
// writers to the same record are serialized by the revision check.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open creates the record store, creating the database file and the
// collection tables if they do not exist.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("record store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("record store: Logger is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, collectionSchema(), nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("record store: %w", err)
	}

	return &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// collectionSchema returns the CREATE TABLE statements for all
// collections. Table names are fixed; collection values are validated
// before interpolation everywhere they reach SQL.
func collectionSchema() string {
	schema := ""
	for _, collection := range Collections {
		schema += fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id       TEXT PRIMARY KEY,
				revision INTEGER NOT NULL,
				content  BLOB NOT NULL
			);
		`, collection)
	}
	return schema
}

// Get reads one record and unmarshals its content into out. Returns
// the stored revision for a later Put. Absent records fail with
// NotFound; unparseable content fails with Corrupt.
func (s *Store) Get(ctx context.Context, collection Collection, id string, out any) (int64, error) {
	if !collection.Valid() {
		return 0, fault.Validationf(string(collection), id, "get", "unknown collection")
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("record store: get %s/%s: %w", collection, id, err)
	}
	defer s.pool.Put(conn)

	var revision int64
	var content []byte
	found := false
	err = sqlitex.Execute(conn,
		fmt.Sprintf("SELECT revision, content FROM %s WHERE id = ?", collection),
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				revision = stmt.ColumnInt64(0)
				content = make([]byte, stmt.ColumnLen(1))
				stmt.ColumnBytes(1, content)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("record store: get %s/%s: %w", collection, id, err)
	}
	if !found {
		return 0, fault.NotFoundf(string(collection), id, "get")
	}
	if err := codec.Unmarshal(content, out); err != nil {
		return 0, fault.Corruptf(string(collection), id, "get", err)
	}
	return revision, nil
}

// Put writes one record under the optimistic-write discipline. The
// caller passes the revision it read (0 for a fresh insert); a
// mismatch with the stored revision fails with Conflict, and the
// caller re-reads and retries. Returns the new revision.
func (s *Store) Put(ctx context.Context, collection Collection, id string, readRevision int64, value any) (int64, error) {
	if !collection.Valid() {
		return 0, fault.Validationf(string(collection), id, "put", "unknown collection")
	}
	if id == "" {
		return 0, fault.Validationf(string(collection), id, "put", "record ID is required")
	}
	content, err := codec.Marshal(value)
	if err != nil {
		return 0, fault.Validationf(string(collection), id, "put", "encoding content: %v", err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("record store: put %s/%s: %w", collection, id, err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("record store: put %s/%s: begin: %w", collection, id, err)
	}
	defer endTransaction(&err)

	var current int64
	exists := false
	err = sqlitex.Execute(conn,
		fmt.Sprintf("SELECT revision FROM %s WHERE id = ?", collection),
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				current = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("record store: put %s/%s: %w", collection, id, err)
	}

	if !exists {
		if readRevision != 0 {
			err = fault.Conflictf(string(collection), id, "put",
				"record absent but caller read revision %d", readRevision)
			return 0, err
		}
		err = sqlitex.Execute(conn,
			fmt.Sprintf("INSERT INTO %s (id, revision, content) VALUES (?, 1, ?)", collection),
			&sqlitex.ExecOptions{Args: []any{id, content}})
		if err != nil {
			return 0, fmt.Errorf("record store: put %s/%s: insert: %w", collection, id, err)
		}
		return 1, nil
	}

	if current != readRevision {
		err = fault.Conflictf(string(collection), id, "put",
			"revision is %d but caller read %d", current, readRevision)
		return 0, err
	}
	err = sqlitex.Execute(conn,
		fmt.Sprintf("UPDATE %s SET revision = ?, content = ? WHERE id = ?", collection),
		&sqlitex.ExecOptions{Args: []any{current + 1, content, id}})
	if err != nil {
		return 0, fmt.Errorf("record store: put %s/%s: update: %w", collection, id, err)
	}
	return current + 1, nil
}

// List returns every record in a collection sorted by ID. Content is
// returned raw; use Record.Decode so parse failures surface as
// Corrupt with the record's identity attached.
func (s *Store) List(ctx context.Context, collection Collection) ([]Record, error) {
	if !collection.Valid() {
		return nil, fault.Validationf(string(collection), "", "list", "unknown collection")
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("record store: list %s: %w", collection, err)
	}
	defer s.pool.Put(conn)

	var records []Record
	err = sqlitex.Execute(conn,
		fmt.Sprintf("SELECT id, revision, content FROM %s ORDER BY id", collection),
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				content := make([]byte, stmt.ColumnLen(2))
				stmt.ColumnBytes(2, content)
				records = append(records, Record{
					Collection: collection,
					ID:         stmt.ColumnText(0),
					Revision:   stmt.ColumnInt64(1),
					Content:    content,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("record store: list %s: %w", collection, err)
	}
	return records, nil
}
