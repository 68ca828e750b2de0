/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and ledger.Directory using SQLite. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  profiles:    Loyalty profiles, keyed by loyalty id, unique per chat user
  scan_events: Append-only scan history (no UPDATE, no DELETE)
  employees:   Read-only employee directory, seedable at startup

CONCURRENCY:
  Uses sync.RWMutex for thread-safety inside the store. The engine layers
  its own read-modify-write critical section on top; the store mutex only
  guarantees individual calls are atomic.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery
  Readers therefore never observe a partially written record set.

CORRUPTION:
  Rows that fail to parse at load time are skipped and logged, never
  silently discarded. Operators can detect data loss from the log.

USAGE:
  store, err := sqlite.New("./data/loyalty.db", logger)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store, store, ledger.Options{})

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/loyalty-ledger/ledger"
)

// Store implements ledger.Store and ledger.Directory using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log *slog.Logger
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	store := &Store{db: db, log: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Loyalty profiles: one per chat user, mutated in place by the engine
	CREATE TABLE IF NOT EXISTS profiles (
		loyalty_id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		chat_user_id TEXT NOT NULL UNIQUE,
		points TEXT NOT NULL,
		scan_count INTEGER NOT NULL DEFAULT 0,
		last_daily_reward_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_chat_user
		ON profiles(chat_user_id);
	CREATE INDEX IF NOT EXISTS idx_profiles_employee
		ON profiles(employee_id);

	-- Scan history (append-only: no UPDATE, no DELETE)
	CREATE TABLE IF NOT EXISTS scan_events (
		id TEXT PRIMARY KEY,
		loyalty_id TEXT NOT NULL,
		scan_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scan_events_loyalty
		ON scan_events(loyalty_id, created_at);

	-- Employee directory (read-only reference data, seeded externally)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROFILE STORE (ledger.Store interface)
// =============================================================================

// LoadProfiles returns all persisted profiles. Unparseable rows are skipped
// and logged rather than failing the whole load or vanishing silently.
func (s *Store) LoadProfiles(ctx context.Context) ([]ledger.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT loyalty_id, employee_id, chat_user_id, points, scan_count,
		       last_daily_reward_at, created_at
		FROM profiles
		ORDER BY created_at ASC, loyalty_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []ledger.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			s.log.Warn("skipping unreadable profile row", slog.String("error", err.Error()))
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// SaveProfiles upserts the given profiles inside one SQL transaction.
func (s *Store) SaveProfiles(ctx context.Context, profiles []ledger.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO profiles
		(loyalty_id, employee_id, chat_user_id, points, scan_count, last_daily_reward_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(loyalty_id) DO UPDATE SET
			points = excluded.points,
			scan_count = excluded.scan_count,
			last_daily_reward_at = excluded.last_daily_reward_at
	`

	for _, p := range profiles {
		var rewardedAt *string
		if p.LastDailyRewardAt != nil {
			t := p.LastDailyRewardAt.UTC().Format(time.RFC3339Nano)
			rewardedAt = &t
		}

		_, err := sqlTx.ExecContext(ctx, query,
			p.LoyaltyID,
			p.EmployeeID,
			p.ChatUserID,
			p.Points.String(),
			p.ScanCount,
			rewardedAt,
			p.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to save profile %s: %w", p.LoyaltyID, err)
		}
	}

	return sqlTx.Commit()
}

func scanProfile(rows *sql.Rows) (ledger.Profile, error) {
	var (
		p          ledger.Profile
		points     string
		rewardedAt sql.NullString
		createdAt  string
	)

	err := rows.Scan(&p.LoyaltyID, &p.EmployeeID, &p.ChatUserID,
		&points, &p.ScanCount, &rewardedAt, &createdAt)
	if err != nil {
		return p, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.Points, err = ledger.ParsePoints(points)
	if err != nil {
		return p, fmt.Errorf("profile %s: %w", p.LoyaltyID, err)
	}
	if rewardedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, rewardedAt.String)
		if err != nil {
			return p, fmt.Errorf("profile %s: invalid reward timestamp: %w", p.LoyaltyID, err)
		}
		p.LastDailyRewardAt = &t
	}
	p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return p, fmt.Errorf("profile %s: invalid created timestamp: %w", p.LoyaltyID, err)
	}

	return p, nil
}

// =============================================================================
// SCAN EVENT STORE (append-only)
// =============================================================================

// LoadScans returns all scan events in append order. Ordering follows the
// rowid, not the timestamp, so events appended within the same instant
// still come back in the order they landed. Unreadable rows are skipped
// and logged, matching the profile load policy.
func (s *Store) LoadScans(ctx context.Context) ([]ledger.ScanEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, loyalty_id, scan_type, created_at
		FROM scan_events
		ORDER BY rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan events: %w", err)
	}
	defer rows.Close()

	var events []ledger.ScanEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			s.log.Warn("skipping unreadable scan event row", slog.String("error", err.Error()))
			continue
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (ledger.ScanEvent, error) {
	var (
		ev        ledger.ScanEvent
		scanType  string
		createdAt string
	)
	if err := rows.Scan(&ev.ID, &ev.LoyaltyID, &scanType, &createdAt); err != nil {
		return ev, fmt.Errorf("failed to scan event row: %w", err)
	}

	ev.ScanType = ledger.ScanType(scanType)
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ev, fmt.Errorf("scan event %s: invalid timestamp: %w", ev.ID, err)
	}
	ev.Timestamp = ts
	return ev, nil
}

// AppendScan appends one scan event. The only scan write.
func (s *Store) AppendScan(ctx context.Context, ev ledger.ScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO scan_events (id, loyalty_id, scan_type, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		ev.ID,
		ev.LoyaltyID,
		string(ev.ScanType),
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append scan event: %w", err)
	}
	return nil
}

// =============================================================================
// EMPLOYEE DIRECTORY (ledger.Directory interface)
// =============================================================================

// FindEmployee retrieves an employee by normalized id. Returns (nil, nil)
// when the directory does not know the id.
func (s *Store) FindEmployee(ctx context.Context, normalizedID string) (*ledger.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp ledger.Employee
	err := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, role FROM employees WHERE LOWER(TRIM(id)) = ?",
		normalizedID,
	).Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Role)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// SeedEmployees upserts directory records. The ledger never calls this; it
// exists for bootstrap and tests, since the directory is externally managed.
func (s *Store) SeedEmployees(ctx context.Context, employees []ledger.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, first_name, last_name, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			role = excluded.role
	`

	now := time.Now().UTC().Format(time.RFC3339)
	for _, emp := range employees {
		if _, err := s.db.ExecContext(ctx, query,
			emp.ID, emp.FirstName, emp.LastName, emp.Role, now); err != nil {
			return fmt.Errorf("failed to seed employee %s: %w", emp.ID, err)
		}
	}
	return nil
}

// ListEmployees returns the whole directory, ordered by id.
func (s *Store) ListEmployees(ctx context.Context) ([]ledger.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, role FROM employees ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []ledger.Employee
	for rows.Next() {
		var emp ledger.Employee
		if err := rows.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Role); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// Reset clears profile and scan data (for testing/demo). The employee
// directory is left alone.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"profiles", "scan_events"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
