// Package storage provides the byte-string backends that snapshots are
// persisted to.
//
// Every backend implements Backend: Get returns (nil, nil) for a missing key,
// Set overwrites, and Remove of a missing key is not an error.
//
// Available backends:
//   - Memory: in-process map, the default for session persistence
//   - Badger: BadgerDB directory, the default for local persistence
//   - SQL: any database/sql driver; OpenSQLite uses modernc.org/sqlite
//   - Redis: any client satisfying RedisClient
//   - S3: an S3 bucket through aws-sdk-go-v2
//
// Open builds a backend from a Config, which is how the rstore CLI wires them:
//
//	backend, err := storage.Open(ctx, storage.Config{Driver: "badger", Path: ".rstore"}, logger)
package storage
