package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-ledger/ledger"
	"github.com/warp/loyalty-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, _ := newTestStoreAt(t)
	return store
}

// newTestStoreAt also returns the database path so tests can open a raw
// connection alongside the store.
func newTestStoreAt(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := sqlite.New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func testProfile(loyaltyID, chatUserID string) ledger.Profile {
	return ledger.Profile{
		LoyaltyID:  loyaltyID,
		EmployeeID: "E100",
		ChatUserID: chatUserID,
		Points:     ledger.NewPoints(100),
		CreatedAt:  time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// PROFILE PERSISTENCE
// =============================================================================

func TestProfiles_RoundTrip(t *testing.T) {
	// Writing a profile set and reloading yields equal values in all fields.

	store := newTestStore(t)
	ctx := context.Background()

	rewarded := time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC)
	p1 := testProfile("L1", "u1")
	p1.Points = ledger.NewPoints(130)
	p1.ScanCount = 2
	p1.LastDailyRewardAt = &rewarded
	p2 := testProfile("L2", "u2")

	require.NoError(t, store.SaveProfiles(ctx, []ledger.Profile{p1, p2}))

	loaded, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]ledger.Profile{}
	for _, p := range loaded {
		byID[p.LoyaltyID] = p
	}

	got := byID["L1"]
	assert.Equal(t, "E100", got.EmployeeID)
	assert.Equal(t, "u1", got.ChatUserID)
	assert.True(t, got.Points.Equal(ledger.NewPoints(130)))
	assert.Equal(t, 2, got.ScanCount)
	require.NotNil(t, got.LastDailyRewardAt)
	assert.True(t, got.LastDailyRewardAt.Equal(rewarded))
	assert.True(t, got.CreatedAt.Equal(p1.CreatedAt))

	assert.Nil(t, byID["L2"].LastDailyRewardAt)
}

func TestProfiles_RoundTrip_SubSecondTimestamps(t *testing.T) {
	// Timestamps stamped by a real clock carry nanoseconds; the store must
	// hand them back exactly, not truncated to whole seconds.

	store := newTestStore(t)
	ctx := context.Background()

	rewarded := time.Date(2025, time.June, 1, 9, 30, 15, 123456789, time.UTC)
	p := testProfile("L1", "u1")
	p.CreatedAt = time.Date(2025, time.June, 1, 9, 0, 0, 987654321, time.UTC)
	p.LastDailyRewardAt = &rewarded

	require.NoError(t, store.SaveProfiles(ctx, []ledger.Profile{p}))

	loaded, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt),
		"created at: want %v, got %v", p.CreatedAt, got.CreatedAt)
	require.NotNil(t, got.LastDailyRewardAt)
	assert.True(t, got.LastDailyRewardAt.Equal(rewarded),
		"last daily reward: want %v, got %v", rewarded, *got.LastDailyRewardAt)
}

func TestSaveProfiles_UpsertKeepsOtherProfiles(t *testing.T) {
	// Saving a subset only touches that subset.

	store := newTestStore(t)
	ctx := context.Background()

	p1 := testProfile("L1", "u1")
	p2 := testProfile("L2", "u2")
	require.NoError(t, store.SaveProfiles(ctx, []ledger.Profile{p1, p2}))

	p1.Points = ledger.NewPoints(150)
	p1.ScanCount = 5
	require.NoError(t, store.SaveProfiles(ctx, []ledger.Profile{p1}))

	loaded, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	for _, p := range loaded {
		switch p.LoyaltyID {
		case "L1":
			assert.Equal(t, int64(150), p.Points.Int64())
			assert.Equal(t, 5, p.ScanCount)
		case "L2":
			assert.Equal(t, int64(100), p.Points.Int64())
			assert.Equal(t, 0, p.ScanCount)
		}
	}
}

// =============================================================================
// SCAN EVENTS
// =============================================================================

func TestScanEvents_AppendOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3"} {
		ev := ledger.ScanEvent{
			ID:        id,
			LoyaltyID: "L1",
			ScanType:  ledger.ScanTypeBot,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.AppendScan(ctx, ev))
	}

	events, err := store.LoadScans(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "s1", events[0].ID)
	assert.Equal(t, "s2", events[1].ID)
	assert.Equal(t, "s3", events[2].ID)
	assert.Equal(t, ledger.ScanTypeBot, events[0].ScanType)
}

func TestScanEvents_AppendOrder_SameInstant(t *testing.T) {
	// Events sharing one timestamp still come back in insertion order,
	// even when their ids sort the other way.

	store := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"z1", "a2", "m3"} {
		ev := ledger.ScanEvent{
			ID:        id,
			LoyaltyID: "L1",
			ScanType:  ledger.ScanTypeBot,
			Timestamp: at,
		}
		require.NoError(t, store.AppendScan(ctx, ev))
	}

	events, err := store.LoadScans(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "z1", events[0].ID)
	assert.Equal(t, "a2", events[1].ID)
	assert.Equal(t, "m3", events[2].ID)
}

func TestScanEvents_RoundTrip_SubSecondTimestamps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stamp := time.Date(2025, time.June, 1, 9, 0, 0, 123456789, time.UTC)
	ev := ledger.ScanEvent{
		ID:        "s1",
		LoyaltyID: "L1",
		ScanType:  ledger.ScanTypeIPhone,
		Timestamp: stamp,
	}
	require.NoError(t, store.AppendScan(ctx, ev))

	events, err := store.LoadScans(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(stamp),
		"timestamp: want %v, got %v", stamp, events[0].Timestamp)
}

// =============================================================================
// CORRUPT ROW HANDLING
// =============================================================================

func TestLoad_SkipsUnreadableRows(t *testing.T) {
	// A row that fails to decode is skipped, not fatal, for both record
	// sets; the readable rows still load.

	store, path := newTestStoreAt(t)
	ctx := context.Background()

	good := testProfile("L1", "u1")
	require.NoError(t, store.SaveProfiles(ctx, []ledger.Profile{good}))
	require.NoError(t, store.AppendScan(ctx, ledger.ScanEvent{
		ID:        "s1",
		LoyaltyID: "L1",
		ScanType:  ledger.ScanTypeBot,
		Timestamp: time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC),
	}))

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer raw.Close()

	_, err = raw.ExecContext(ctx, `
		INSERT INTO profiles (loyalty_id, employee_id, chat_user_id, points, scan_count, created_at)
		VALUES ('L2', 'E100', 'u2', 'banana', 0, '2025-06-01T09:00:00Z')
	`)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `
		INSERT INTO scan_events (id, loyalty_id, scan_type, created_at)
		VALUES ('s2', 'L1', 'bot', 'garbage')
	`)
	require.NoError(t, err)

	profiles, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "L1", profiles[0].LoyaltyID)

	events, err := store.LoadScans(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "s1", events[0].ID)
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func TestFindEmployee_CaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedEmployees(ctx, []ledger.Employee{
		{ID: "E100", FirstName: "Ana", LastName: "Lee", Role: "cashier"},
	}))

	emp, err := store.FindEmployee(ctx, ledger.NormalizeEmployeeID(" e100 "))
	require.NoError(t, err)
	require.NotNil(t, emp)
	assert.Equal(t, "E100", emp.ID)
	assert.Equal(t, "Ana", emp.FirstName)

	missing, err := store.FindEmployee(ctx, "e999")
	require.NoError(t, err)
	assert.Nil(t, missing, "unknown employee is (nil, nil), not an error")
}

// =============================================================================
// ENGINE OVER SQLITE
// =============================================================================

func TestEngine_FullFlow_OverSQLite(t *testing.T) {
	// The whole flow against the production store:
	// register -> 100 points, scan -> 110/1 with one history entry.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedEmployees(ctx, []ledger.Employee{
		{ID: "E100", FirstName: "Ana", LastName: "Lee", Role: "cashier"},
	}))

	engine := ledger.NewEngine(store, store, ledger.Options{})

	profile, err := engine.RegisterProfile(ctx, "E100", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), profile.Points.Int64())

	updated, err := engine.RecordScan(ctx, profile.LoyaltyID, ledger.ScanTypeBot)
	require.NoError(t, err)
	assert.Equal(t, int64(110), updated.Points.Int64())
	assert.Equal(t, 1, updated.ScanCount)

	history, err := engine.ScanHistory(ctx, profile.LoyaltyID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.ScanTypeBot, history[0].ScanType)

	// Reset clears ledger data but keeps the directory.
	require.NoError(t, store.Reset(ctx))
	profiles, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)

	emp, err := store.FindEmployee(ctx, "e100")
	require.NoError(t, err)
	assert.NotNil(t, emp)
}
