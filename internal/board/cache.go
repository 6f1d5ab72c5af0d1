package board

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/openclinic/kioskboard/internal/api"
)

// SQL statements for snapshot cache operations.
const (
	sqlLoadSnapshot = `SELECT id, status, location, location_raw, arrived_at, staff
		FROM snapshot ORDER BY position`

	sqlClearSnapshot = `DELETE FROM snapshot`

	sqlInsertSnapshot = `INSERT INTO snapshot
		(id, status, location, location_raw, arrived_at, staff, position, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// Cache persists the last good snapshot so a restarted kiosk can paint
// stale-but-real data before its first fetch. The scheduler is the sole
// writer; it replaces the whole snapshot after each fully-published cycle.
type Cache struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// NewCache opens the SQLite database at dbPath, runs migrations, and
// returns a ready-to-use cache. The database uses WAL mode with a single
// writer connection.
func NewCache(dbPath string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("board: opening snapshot cache %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("snapshot cache initialized", slog.String("db_path", dbPath))

	return &Cache{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Load reads the cached snapshot in its saved order. Returns an empty
// snapshot when the cache has never been written.
func (c *Cache) Load(ctx context.Context) (Snapshot, error) {
	rows, err := c.db.QueryContext(ctx, sqlLoadSnapshot)
	if err != nil {
		return nil, fmt.Errorf("board: loading snapshot cache: %w", err)
	}
	defer rows.Close()

	var snap Snapshot

	for rows.Next() {
		rec, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, err
		}

		snap = append(snap, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("board: reading snapshot cache: %w", err)
	}

	return snap, nil
}

// Save atomically replaces the cached snapshot with recs.
func (c *Cache) Save(ctx context.Context, recs Snapshot) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("board: beginning cache transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, sqlClearSnapshot); err != nil {
		return fmt.Errorf("board: clearing snapshot cache: %w", err)
	}

	savedAt := c.nowFunc().UnixNano()

	for i := range recs {
		staff, err := json.Marshal(recs[i].Staff)
		if err != nil {
			return fmt.Errorf("board: encoding staff list for %s: %w", recs[i].ID, err)
		}

		_, err = tx.ExecContext(ctx, sqlInsertSnapshot,
			recs[i].ID,
			recs[i].Status,
			recs[i].Location,
			recs[i].LocationRaw,
			recs[i].ArrivedAt.UnixNano(),
			string(staff),
			i,
			savedAt,
		)
		if err != nil {
			return fmt.Errorf("board: inserting cached record %s: %w", recs[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("board: committing snapshot cache: %w", err)
	}

	return nil
}

// scanSnapshotRow reads one cached record.
func scanSnapshotRow(rows *sql.Rows) (api.Encounter, error) {
	var (
		rec         api.Encounter
		arrivedNano int64
		staffJSON   string
	)

	if err := rows.Scan(
		&rec.ID, &rec.Status, &rec.Location, &rec.LocationRaw,
		&arrivedNano, &staffJSON,
	); err != nil {
		return rec, fmt.Errorf("board: scanning cached record: %w", err)
	}

	if arrivedNano != 0 {
		rec.ArrivedAt = time.Unix(0, arrivedNano)
	}

	if staffJSON != "" && staffJSON != "null" {
		if err := json.Unmarshal([]byte(staffJSON), &rec.Staff); err != nil {
			return rec, fmt.Errorf("board: decoding staff list for %s: %w", rec.ID, err)
		}
	}

	return rec, nil
}
