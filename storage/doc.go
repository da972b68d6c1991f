// Package storage provides the persistent string key-value substrates the
// barcode cache is written to.
//
// Every backend implements [Store]: Get returns ("", false, nil) for a
// missing key, Set replaces the whole value, Close releases resources.
//
//   - [NewMemory]: mutex guarded map, lost on restart.
//   - [NewFile] / [NewFileDir]: one file per key on a billy filesystem.
//     Writes go through a temporary file and a rename.
//   - [NewSQLite]: a single kv table using [modernc.org/sqlite] (pure Go).
//     ":memory:" keeps the database in process.
//   - [NewRedis]: plain Redis strings via [github.com/redis/go-redis/v9],
//     optionally namespaced with [WithPrefix]. Shared between processes.
//   - [NewComposite]: tiers several stores, first hit wins on Get, Set
//     writes everywhere.
//   - [NewBreaker]: fails fast with [ErrCircuitOpen] after repeated backend
//     failures so an unreachable Redis does not stall every lookup.
//
// [Open] builds any of these from a DSN string.
//
// The SQLite and Redis stores apply a per-operation timeout
// ([DefaultQueryTimeout]) derived from the caller's context.
package storage
