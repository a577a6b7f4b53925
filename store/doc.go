// Package store defines checkpoint persistence for workflow sessions.
//
// A Checkpoint is written by the graph executor after every completed node. It
// records the node that ran, the node to run next, and the merged state encoded
// as JSON. Looking up the latest checkpoint of a session is how an interrupted
// run is resumed:
//
//	cp, err := s.Latest(ctx, sessionID)
//	if errors.Is(err, store.ErrNotFound) {
//		// start fresh from the entry point
//	}
//
// Backends live in sub-packages:
//
//   - memory: in-process map, the default and the choice for tests
//   - file: one JSON document per checkpoint in a directory
//   - redis: github.com/redis/go-redis/v9 with a per-session index set
//   - postgres: github.com/jackc/pgx/v5 with a JSONB state column
//   - sqlite: github.com/mattn/go-sqlite3 through database/sql
//
// Every backend keeps sessions isolated from each other, so concurrent runs
// with different session identifiers never observe each other's state.
package store
