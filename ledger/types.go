/*
Package ledger provides the core loyalty ledger engine.

PURPOSE:
  This package owns profile identity, point-balance mutation, once-per-day
  reward idempotency, and append-only scan recording. It is the sole writer
  of the profile and scan record sets and the only place where concurrency
  guarantees are enforced.

KEY CONCEPTS IN THIS FILE (types.go):
  - Points: A whole-valued point amount backed by decimal.Decimal
  - Employee: Read-only reference record from the employee directory
  - Profile: A loyalty account tied to one chat session and one employee
  - ScanEvent: An immutable history record of one credited scan

DESIGN PRINCIPLES:
  1. Single writer: all mutations of a record set happen inside the engine
  2. Append-only history: ScanEvents are never modified or deleted
  3. Precision: decimal.Decimal keeps point arithmetic exact
  4. Idempotency: registration per chat user and daily rewards per UTC day

SEE ALSO:
  - engine.go: Operations and concurrency discipline
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POINTS - Whole-valued point amount
// =============================================================================

// Points is a non-negative, whole-valued point amount. It is backed by
// decimal.Decimal so arithmetic stays exact and persisted values round-trip
// without float drift.
type Points struct {
	value decimal.Decimal
}

func NewPoints(n int64) Points {
	return Points{value: decimal.NewFromInt(n)}
}

// ParsePoints parses a persisted point amount. Rejects fractional and
// negative values: balances in this system are whole and only increase.
func ParsePoints(s string) (Points, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Points{}, fmt.Errorf("invalid point amount %q: %w", s, err)
	}
	if !d.IsInteger() {
		return Points{}, fmt.Errorf("invalid point amount %q: not a whole number", s)
	}
	if d.IsNegative() {
		return Points{}, fmt.Errorf("invalid point amount %q: negative", s)
	}
	return Points{value: d}, nil
}

func (p Points) Add(other Points) Points { return Points{value: p.value.Add(other.value)} }
func (p Points) Equal(other Points) bool { return p.value.Equal(other.value) }
func (p Points) Int64() int64            { return p.value.IntPart() }
func (p Points) String() string          { return p.value.String() }

// MarshalJSON renders Points as a bare integer.
func (p Points) MarshalJSON() ([]byte, error) {
	return []byte(p.value.String()), nil
}

func (p *Points) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePoints(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// =============================================================================
// DEFAULT AMOUNTS
// =============================================================================

const (
	// DefaultStartingBalance seeds every newly registered profile.
	DefaultStartingBalance int64 = 100

	// DefaultDailyBonus is granted at most once per UTC calendar day.
	DefaultDailyBonus int64 = 10

	// DefaultScanBonus is credited per recorded scan.
	DefaultScanBonus int64 = 10
)

// =============================================================================
// EMPLOYEE - Read-only directory record
// =============================================================================

// Employee is a reference record from the employee directory. The ledger
// looks employees up and never mutates them.
type Employee struct {
	ID        string
	FirstName string
	LastName  string
	Role      string
}

// NormalizeEmployeeID canonicalizes an employee identifier for directory
// lookups: trimmed and lower-cased.
func NormalizeEmployeeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// =============================================================================
// PROFILE - One loyalty account per chat user
// =============================================================================

// Profile is a loyalty account. LoyaltyID, EmployeeID and ChatUserID are
// immutable after creation; Points and ScanCount only increase.
type Profile struct {
	LoyaltyID         string
	EmployeeID        string
	ChatUserID        string
	Points            Points
	ScanCount         int
	LastDailyRewardAt *time.Time
	CreatedAt         time.Time
}

// RewardedOn reports whether the profile already received its daily reward
// on the given UTC calendar day.
func (p *Profile) RewardedOn(day time.Time) bool {
	if p.LastDailyRewardAt == nil {
		return false
	}
	y1, m1, d1 := p.LastDailyRewardAt.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// =============================================================================
// SCAN EVENT - Append-only scan history record
// =============================================================================

// ScanType tags the origin of a scan.
type ScanType string

const (
	// ScanTypeBot marks in-chat simulated scans.
	ScanTypeBot ScanType = "bot"

	// ScanTypeIPhone is the fixed tag embedded in QR enrollment payloads.
	ScanTypeIPhone ScanType = "iphone"
)

// ScanEvent records a single credited scan. Created once, never changed.
type ScanEvent struct {
	ID        string
	LoyaltyID string
	ScanType  ScanType
	Timestamp time.Time
}
