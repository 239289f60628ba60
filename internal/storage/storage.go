// Package storage bulk-loads MBP snapshots into a durable columnar store.
// The production Writer streams batches into Postgres via a COPY protocol
// and drops/recreates its indexes around the load; a console Writer is
// provided as a dependency-free stand-in for local runs, mirroring the
// teacher's postgres/console storage split.
package storage

import "github.com/mselser95/orderbook-snapshotter/internal/snapshot"

// Writer consumes snapshot records from a bounded channel until it is
// closed, persisting each one. Run blocks until rx is closed and every
// buffered record has been flushed, or until a fatal error occurs.
type Writer interface {
	Run(rx <-chan *snapshot.Record) error
	Close() error
}
