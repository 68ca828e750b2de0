// Package store provides in-memory Store and Directory implementations
// for tests and development.
package store

import (
	"context"
	"sync"

	"github.com/warp/loyalty-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	profiles map[string]ledger.Profile // keyed by LoyaltyID
	order    []string                  // insertion order of loyalty ids
	scans    []ledger.ScanEvent
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]ledger.Profile)}
}

// LoadProfiles returns a copy of the profile set in insertion order.
func (m *Memory) LoadProfiles(_ context.Context) ([]ledger.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Profile, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.profiles[id])
	}
	return out, nil
}

// SaveProfiles upserts the given profiles atomically.
func (m *Memory) SaveProfiles(_ context.Context, profiles []ledger.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range profiles {
		if _, ok := m.profiles[p.LoyaltyID]; !ok {
			m.order = append(m.order, p.LoyaltyID)
		}
		m.profiles[p.LoyaltyID] = p
	}
	return nil
}

// LoadScans returns a copy of the scan history in append order.
func (m *Memory) LoadScans(_ context.Context) ([]ledger.ScanEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.ScanEvent, len(m.scans))
	copy(out, m.scans)
	return out, nil
}

// AppendScan appends one scan event. Append-only.
func (m *Memory) AppendScan(_ context.Context, ev ledger.ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scans = append(m.scans, ev)
	return nil
}

// =============================================================================
// STATIC DIRECTORY - Fixed employee reference dataset
// =============================================================================

// StaticDirectory serves a fixed employee set, keyed by normalized id.
type StaticDirectory struct {
	employees map[string]ledger.Employee
}

func NewStaticDirectory(employees ...ledger.Employee) *StaticDirectory {
	d := &StaticDirectory{employees: make(map[string]ledger.Employee, len(employees))}
	for _, emp := range employees {
		d.employees[ledger.NormalizeEmployeeID(emp.ID)] = emp
	}
	return d
}

func (d *StaticDirectory) FindEmployee(_ context.Context, normalizedID string) (*ledger.Employee, error) {
	emp, ok := d.employees[normalizedID]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}
