package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/orderbook-snapshotter/internal/snapshot"
)

const tableDDL = `
CREATE TABLE IF NOT EXISTS orderbook_snapshots (
	id BIGSERIAL PRIMARY KEY,
	symbol VARCHAR(50) NOT NULL,
	ts_event BIGINT NOT NULL,
	best_bid_price BIGINT NOT NULL,
	best_bid_size INTEGER NOT NULL,
	best_bid_count INTEGER NOT NULL,
	best_ask_price BIGINT NOT NULL,
	best_ask_size INTEGER NOT NULL,
	best_ask_count INTEGER NOT NULL,
	bid_levels INTEGER NOT NULL,
	ask_levels INTEGER NOT NULL,
	total_orders INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_orderbook_snapshots_ts ON orderbook_snapshots (ts_event);
CREATE INDEX IF NOT EXISTS idx_orderbook_snapshots_symbol ON orderbook_snapshots (symbol, ts_event DESC);
`

const dropIndexSQL = `
DROP INDEX IF EXISTS idx_orderbook_snapshots_ts;
DROP INDEX IF EXISTS idx_orderbook_snapshots_symbol;
`

const recreateIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_orderbook_snapshots_ts ON orderbook_snapshots (ts_event);
CREATE INDEX IF NOT EXISTS idx_orderbook_snapshots_symbol ON orderbook_snapshots (symbol, ts_event DESC);
`

var copyColumns = []string{
	"symbol", "ts_event",
	"best_bid_price", "best_bid_size", "best_bid_count",
	"best_ask_price", "best_ask_size", "best_ask_count",
	"bid_levels", "ask_levels", "total_orders",
}

// Postgres SQLSTATE codes the EnsureDatabase flow needs to recognize.
const (
	sqlStateInvalidCatalogName = "3D000"
	sqlStateDuplicateDatabase  = "42P04"
)

// PostgresConfig configures a PostgresWriter.
type PostgresConfig struct {
	DSN           string
	BatchSize     int
	FlushInterval time.Duration
	Logger        *zap.Logger
	Metrics       *Metrics
}

// PostgresWriter bulk-loads snapshots into Postgres using pq's streaming
// COPY protocol, dropping its two indexes before the load and recreating
// them on shutdown. It is the production Writer implementation; it owns
// its *sql.DB exclusively (no other goroutine touches it) per spec.md §5.
type PostgresWriter struct {
	dsn           string
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger
	metrics       *Metrics
	db            *sql.DB
}

// NewPostgresWriter builds a PostgresWriter. Run must be called to connect
// and start consuming.
func NewPostgresWriter(cfg PostgresConfig) *PostgresWriter {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &PostgresWriter{
		dsn:           cfg.DSN,
		batchSize:     batchSize,
		flushInterval: cfg.FlushInterval,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// Run implements Writer. It drives the Init -> EnsureDatabase -> Connect ->
// EnsureSchema -> DropIndexes -> Running <-> Flushing -> Drained ->
// RecreateIndexes -> Done state machine from spec.md §4.F.
func (w *PostgresWriter) Run(rx <-chan *snapshot.Record) error {
	w.logger.Info("storage-writer-starting", zap.String("dsn", redactDSN(w.dsn)))

	if err := ensureDatabase(w.dsn); err != nil {
		return fmt.Errorf("ensure database: %w", err)
	}
	w.logger.Info("storage-writer-database-ensured")

	db, err := connect(w.dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	w.db = db
	w.logger.Info("storage-writer-connected")

	if err := ensureSchema(w.db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	w.logger.Info("storage-writer-schema-ensured")

	if err := dropIndexes(w.db); err != nil {
		return fmt.Errorf("drop indexes: %w", err)
	}
	w.logger.Info("storage-writer-indexes-dropped")

	return w.runLoop(rx)
}

// runLoop drives the buffer/flush/reconnect cycle once the connection,
// schema, and index state are established, and recreates the indexes once
// rx closes and the final buffer is flushed. Split out from Run so it can
// be exercised directly against a sqlmock connection in tests.
func (w *PostgresWriter) runLoop(rx <-chan *snapshot.Record) error {
	buffer := make([]*snapshot.Record, 0, w.batchSize)
	totalWritten := 0
	failedFlushes := 0

	doFlush := func(reason string) error {
		if len(buffer) == 0 {
			return nil
		}
		start := time.Now()
		err := w.flushCopy(buffer)
		if w.metrics != nil {
			w.metrics.FlushDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			failedFlushes++
			if w.metrics != nil {
				w.metrics.FlushErrors.Inc()
			}
			w.logger.Error("storage-writer-flush-failed",
				zap.Error(err), zap.Int("buffer_size", len(buffer)), zap.String("reason", reason), zap.Int("attempt", failedFlushes))

			if !isConnectionError(err) {
				return fmt.Errorf("flush batch of %d snapshots: %w", len(buffer), err)
			}

			w.logger.Info("storage-writer-reconnecting")
			if w.metrics != nil {
				w.metrics.Reconnects.Inc()
			}
			newDB, rerr := connect(w.dsn)
			if rerr != nil {
				return fmt.Errorf("reconnect to postgres: %w", rerr)
			}
			_ = w.db.Close()
			w.db = newDB

			if err2 := w.flushCopy(buffer); err2 != nil {
				return fmt.Errorf("retry flush of %d snapshots after reconnect: %w", len(buffer), err2)
			}
			w.logger.Info("storage-writer-retry-flush-succeeded", zap.Int("buffer_size", len(buffer)))
		}

		if w.metrics != nil {
			w.metrics.FlushTotal.Inc()
			w.metrics.FlushBatchSize.Observe(float64(len(buffer)))
			w.metrics.RowsWritten.Add(float64(len(buffer)))
		}
		totalWritten += len(buffer)
		buffer = buffer[:0]
		return nil
	}

	disconnected := false
	for !disconnected {
		if len(buffer) == 0 {
			rec, ok := <-rx
			if !ok {
				disconnected = true
				continue
			}
			buffer = append(buffer, rec)
		} else {
			select {
			case rec, ok := <-rx:
				if !ok {
					disconnected = true
					continue
				}
				buffer = append(buffer, rec)
			case <-time.After(w.flushInterval):
				if err := doFlush("flush_interval"); err != nil {
					return err
				}
				continue
			}
		}

		if len(buffer) >= w.batchSize {
			if err := doFlush("batch_size"); err != nil {
				return err
			}
		}
	}

	w.logger.Info("storage-writer-channel-disconnected", zap.Int("buffer_size", len(buffer)))
	if err := doFlush("shutdown"); err != nil {
		return err
	}

	w.logger.Info("storage-writer-recreating-indexes", zap.Int("total_written", totalWritten), zap.Int("failed_flushes", failedFlushes))
	if err := recreateIndexes(w.db); err != nil {
		return fmt.Errorf("recreate indexes: %w", err)
	}
	w.logger.Info("storage-writer-indexes-recreated")

	return nil
}

// Close releases the database connection. Safe to call after Run returns.
func (w *PostgresWriter) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *PostgresWriter) flushCopy(buffer []*snapshot.Record) error {
	txn, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin COPY transaction for %d snapshots: %w", len(buffer), err)
	}

	stmt, err := txn.Prepare(pq.CopyIn("orderbook_snapshots", copyColumns...))
	if err != nil {
		_ = txn.Rollback()
		return fmt.Errorf("prepare COPY for %d snapshots: %w", len(buffer), err)
	}

	for idx, rec := range buffer {
		bestBidPrice, bestBidSize, bestBidCount := zeroLevel()
		if rec.Payload.Bbo.BestBid != nil {
			bestBidPrice = rec.Payload.Bbo.BestBid.Price
			bestBidSize = int32(rec.Payload.Bbo.BestBid.Size)
			bestBidCount = int32(rec.Payload.Bbo.BestBid.Count)
		}
		bestAskPrice, bestAskSize, bestAskCount := zeroLevel()
		if rec.Payload.Bbo.BestAsk != nil {
			bestAskPrice = rec.Payload.Bbo.BestAsk.Price
			bestAskSize = int32(rec.Payload.Bbo.BestAsk.Size)
			bestAskCount = int32(rec.Payload.Bbo.BestAsk.Count)
		}

		_, err := stmt.Exec(
			rec.Payload.Symbol, rec.TsEvent,
			bestBidPrice, bestBidSize, bestBidCount,
			bestAskPrice, bestAskSize, bestAskCount,
			int32(rec.Payload.BidLevels), int32(rec.Payload.AskLevels), int32(rec.Payload.TotalOrders),
		)
		if err != nil {
			_ = stmt.Close()
			_ = txn.Rollback()
			return fmt.Errorf("write COPY row idx=%d instrument_id=%d ts=%d: %w", idx, rec.InstrumentID, rec.TsEvent, err)
		}
	}

	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		_ = txn.Rollback()
		return fmt.Errorf("finish COPY for %d snapshots: %w", len(buffer), err)
	}
	if err := stmt.Close(); err != nil {
		_ = txn.Rollback()
		return fmt.Errorf("close COPY statement for %d snapshots: %w", len(buffer), err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit COPY batch of %d snapshots: %w", len(buffer), err)
	}
	return nil
}

func zeroLevel() (int64, int32, int32) {
	return 0, 0, 0
}

// isConnectionError classifies a flush error as a connection error per
// spec.md §4.F: its textual description contains one of a fixed set of
// substrings.
func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection") ||
		strings.Contains(msg, "Connection") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "reset by peer")
}

func connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", redactDSN(dsn), err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", redactDSN(dsn), err)
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(tableDDL); err != nil {
		return fmt.Errorf("create orderbook_snapshots table and indexes: %w", err)
	}
	return nil
}

func dropIndexes(db *sql.DB) error {
	if _, err := db.Exec(dropIndexSQL); err != nil {
		return fmt.Errorf("drop indexes: %w", err)
	}
	return nil
}

func recreateIndexes(db *sql.DB) error {
	if _, err := db.Exec(recreateIndexSQL); err != nil {
		return fmt.Errorf("recreate indexes: %w", err)
	}
	return nil
}

// ensureDatabase parses the target database name out of dsn, connects
// directly, and creates the database via an admin connection if it is
// missing, per spec.md §4.F.
func ensureDatabase(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL %s: %w", redactDSN(dsn), err)
	}
	targetDB := strings.TrimPrefix(u.Path, "/")
	if targetDB == "" {
		targetDB = "postgres"
	}

	if db, err := connect(dsn); err == nil {
		defer db.Close()
		if _, err := db.Exec("SELECT 1"); err != nil {
			return fmt.Errorf("validate connectivity to %s: %w", targetDB, err)
		}
		return nil
	} else if !isMissingDatabaseError(err) {
		return fmt.Errorf("connect to postgres using %s: %w", redactDSN(dsn), err)
	}

	adminDB := "postgres"
	if targetDB == "postgres" {
		adminDB = "template1"
	}
	adminDSN := withDatabaseName(*u, adminDB)

	adminConn, err := connect(adminDSN)
	if err != nil {
		return fmt.Errorf("connect to admin database %s (needed to create %s): %w", adminDB, targetDB, err)
	}
	defer adminConn.Close()

	_, err = adminConn.Exec(fmt.Sprintf("CREATE DATABASE %s", quoteIdent(targetDB)))
	if err != nil && !isDuplicateDatabaseError(err) {
		return fmt.Errorf("create target database %s: %w", targetDB, err)
	}
	return nil
}

func withDatabaseName(u url.URL, dbname string) string {
	u.Path = "/" + dbname
	return u.String()
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func isMissingDatabaseError(err error) bool {
	var pqErr *pq.Error
	if ok := asPQError(err, &pqErr); ok {
		return pqErr.Code == sqlStateInvalidCatalogName
	}
	return false
}

func isDuplicateDatabaseError(err error) bool {
	var pqErr *pq.Error
	if ok := asPQError(err, &pqErr); ok {
		return pqErr.Code == sqlStateDuplicateDatabase
	}
	return false
}

func asPQError(err error, target **pq.Error) bool {
	for err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			*target = pqErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// redactDSN trims credentials out of a DSN before it is logged.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable dsn>"
	}
	u.User = nil
	return u.String()
}
