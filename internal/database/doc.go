// Package database is the catalog gateway of the SDC indexer.
//
// It owns the persistence shape of the catalog; nothing above it builds SQL.
// The catalog holds four tables:
//   - science_files: science, metadata-index, quicklook and level-0 products,
//     unique by file name
//   - ancillary_files: ancillary products, unique by (file name, directory)
//   - status: the status side channel written by the indexing commands
//   - orbit_perigees: orbit number to perigee time, used to classify
//     orbit-based names
//
// SQLite (mattn/go-sqlite3) is the default driver and runs in WAL mode with
// writers serialized in process. PostgreSQL is reached through the pgx
// database/sql driver.
//
// Every upsert and delete runs in its own transaction. Upserts take a
// [RecoverableFunc]: a failing row whose error matches it is rolled back,
// logged and reported in [UpsertResult.Failures] while the remaining rows
// are still written. [IsDataShapeError] is the usual predicate.
package database
