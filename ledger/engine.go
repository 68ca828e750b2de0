/*
engine.go - Loyalty ledger operations and concurrency discipline

PURPOSE:
  The Engine is the single writer for the profile and scan record sets. All
  mutating operations run their whole read-modify-write sequence inside a
  per-record-set critical section, so an interleaved write can never land
  between a load and the save that overwrites it.

CONCURRENCY:
  profilesMu serializes every profile mutation (register, daily reward,
  scan credit). Reads take the read half of the lock and return defensive
  copies. scansMu serializes scan-history appends. RecordScan commits the
  profile mutation before appending the history record: a crash between the
  two may orphan a credited bonus, never a history record for an un-applied
  bonus.

ORDERING:
  register -> one profile write
  daily reward -> one profile write covering only changed profiles (none
  changed, no write)
  scan -> profile write, then scan append

SEE ALSO:
  - store.go: Store and Directory interfaces
  - errors.go: Domain error taxonomy
*/
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// Clock supplies the current instant. Injected so UTC-day reward boundaries
// are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures engine amounts. Zero values fall back to the defaults
// from types.go.
type Options struct {
	StartingBalance int64
	DailyBonus      int64
	ScanBonus       int64
	Clock           Clock
	Logger          *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.StartingBalance == 0 {
		o.StartingBalance = DefaultStartingBalance
	}
	if o.DailyBonus == 0 {
		o.DailyBonus = DefaultDailyBonus
	}
	if o.ScanBonus == 0 {
		o.ScanBonus = DefaultScanBonus
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the loyalty ledger core. Safe for concurrent use.
type Engine struct {
	store Store
	dir   Directory
	opts  Options

	// profilesMu guards the full read-modify-write sequence on the profile
	// record set. scansMu guards scan-history appends and reads.
	profilesMu sync.RWMutex
	scansMu    sync.RWMutex
}

// NewEngine creates an engine over the given store and employee directory.
func NewEngine(store Store, dir Directory, opts Options) *Engine {
	return &Engine{store: store, dir: dir, opts: opts.withDefaults()}
}

// =============================================================================
// PROFILE REGISTRY
// =============================================================================

// LookupProfile resolves a chat user to their profile. Returns
// ErrNotRegistered if the chat user has no profile. The returned profile is
// a copy; mutating it does not touch ledger state.
func (e *Engine) LookupProfile(ctx context.Context, chatUserID string) (*Profile, error) {
	e.profilesMu.RLock()
	defer e.profilesMu.RUnlock()

	profiles, err := e.store.LoadProfiles(ctx)
	if err != nil {
		return nil, storeErr("lookup profile", err)
	}
	for i := range profiles {
		if profiles[i].ChatUserID == chatUserID {
			p := profiles[i]
			return &p, nil
		}
	}
	return nil, &NotRegisteredError{ChatUserID: chatUserID}
}

// RegisterProfile creates a profile for the chat user on first contact.
// Idempotent per chat user: an existing profile is returned unchanged, with
// no duplicate created and no balance reset. Fails with ErrEmployeeNotFound
// when the directory does not know the employee id.
func (e *Engine) RegisterProfile(ctx context.Context, employeeID, chatUserID string) (*Profile, error) {
	normalized := NormalizeEmployeeID(employeeID)
	emp, err := e.dir.FindEmployee(ctx, normalized)
	if err != nil {
		return nil, storeErr("register profile: directory lookup", err)
	}
	if emp == nil {
		return nil, &EmployeeNotFoundError{EmployeeID: employeeID}
	}

	e.profilesMu.Lock()
	defer e.profilesMu.Unlock()

	profiles, err := e.store.LoadProfiles(ctx)
	if err != nil {
		return nil, storeErr("register profile", err)
	}
	for i := range profiles {
		if profiles[i].ChatUserID == chatUserID {
			p := profiles[i]
			return &p, nil
		}
	}

	profile := Profile{
		LoyaltyID:  uuid.NewString(),
		EmployeeID: emp.ID,
		ChatUserID: chatUserID,
		Points:     NewPoints(e.opts.StartingBalance),
		CreatedAt:  e.opts.Clock.Now(),
	}
	if err := e.store.SaveProfiles(ctx, []Profile{profile}); err != nil {
		return nil, storeErr("register profile", err)
	}

	e.opts.Logger.Info("profile registered",
		slog.String("loyalty_id", profile.LoyaltyID),
		slog.String("employee_id", profile.EmployeeID),
		slog.String("chat_user_id", profile.ChatUserID))

	return &profile, nil
}

// =============================================================================
// DAILY REWARD SCHEDULER
// =============================================================================

// ApplyDailyRewards grants the flat daily bonus to every profile at most
// once per UTC calendar day. Applied lazily: callers invoke this before
// profile reads; there is no background timer. Performs a single durable
// write covering only the profiles that changed; if none changed, no write
// happens at all.
func (e *Engine) ApplyDailyRewards(ctx context.Context) error {
	e.profilesMu.Lock()
	defer e.profilesMu.Unlock()

	profiles, err := e.store.LoadProfiles(ctx)
	if err != nil {
		return storeErr("apply daily rewards", err)
	}

	now := e.opts.Clock.Now()
	var changed []Profile
	for i := range profiles {
		if profiles[i].RewardedOn(now) {
			continue
		}
		p := profiles[i]
		p.Points = p.Points.Add(NewPoints(e.opts.DailyBonus))
		stamp := now
		p.LastDailyRewardAt = &stamp
		changed = append(changed, p)
	}
	if len(changed) == 0 {
		return nil
	}

	if err := e.store.SaveProfiles(ctx, changed); err != nil {
		return storeErr("apply daily rewards", err)
	}

	e.opts.Logger.Info("daily rewards applied",
		slog.Int("profiles", len(changed)),
		slog.Int64("bonus", e.opts.DailyBonus))
	return nil
}

// =============================================================================
// SCAN RECORDER
// =============================================================================

// RecordScan credits the scan bonus to the profile and appends one history
// record. Fails with ErrProfileNotFound when the loyalty id does not
// resolve. The profile mutation is durably committed before the scan event
// is appended.
func (e *Engine) RecordScan(ctx context.Context, loyaltyID string, scanType ScanType) (*Profile, error) {
	updated, err := e.creditScan(ctx, loyaltyID)
	if err != nil {
		return nil, err
	}

	ev := ScanEvent{
		ID:        uuid.NewString(),
		LoyaltyID: loyaltyID,
		ScanType:  scanType,
		Timestamp: e.opts.Clock.Now(),
	}

	e.scansMu.Lock()
	err = e.store.AppendScan(ctx, ev)
	e.scansMu.Unlock()
	if err != nil {
		// The bonus is already committed. Surface the append failure so the
		// caller can retry; do not roll the profile back.
		return updated, storeErr("record scan: append history", err)
	}

	e.opts.Logger.Info("scan recorded",
		slog.String("loyalty_id", loyaltyID),
		slog.String("scan_type", string(scanType)),
		slog.Int("scan_count", updated.ScanCount))

	return updated, nil
}

func (e *Engine) creditScan(ctx context.Context, loyaltyID string) (*Profile, error) {
	e.profilesMu.Lock()
	defer e.profilesMu.Unlock()

	profiles, err := e.store.LoadProfiles(ctx)
	if err != nil {
		return nil, storeErr("record scan", err)
	}
	for i := range profiles {
		if profiles[i].LoyaltyID != loyaltyID {
			continue
		}
		p := profiles[i]
		p.ScanCount++
		p.Points = p.Points.Add(NewPoints(e.opts.ScanBonus))
		if err := e.store.SaveProfiles(ctx, []Profile{p}); err != nil {
			return nil, storeErr("record scan", err)
		}
		return &p, nil
	}
	return nil, &ProfileNotFoundError{LoyaltyID: loyaltyID}
}

// =============================================================================
// SCAN HISTORY
// =============================================================================

// ScanHistory returns the scan events recorded for the loyalty id, in
// append order. Read-only; an unknown id yields an empty slice.
func (e *Engine) ScanHistory(ctx context.Context, loyaltyID string) ([]ScanEvent, error) {
	e.scansMu.RLock()
	defer e.scansMu.RUnlock()

	events, err := e.store.LoadScans(ctx)
	if err != nil {
		return nil, storeErr("scan history", err)
	}
	var out []ScanEvent
	for _, ev := range events {
		if ev.LoyaltyID == loyaltyID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// FindEmployee resolves an employee id through the directory, normalizing
// the identifier first. A missing employee is reported via
// ErrEmployeeNotFound.
func (e *Engine) FindEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	emp, err := e.dir.FindEmployee(ctx, NormalizeEmployeeID(employeeID))
	if err != nil {
		return nil, storeErr("find employee", err)
	}
	if emp == nil {
		return nil, &EmployeeNotFoundError{EmployeeID: employeeID}
	}
	return emp, nil
}
