// dto.go - Request/response shapes for the HTTP API.
package api

import (
	"time"

	"github.com/warp/loyalty-ledger/ledger"
)

// =============================================================================
// REQUESTS
// =============================================================================

type RegisterProfileRequest struct {
	EmployeeID string `json:"employee_id"`
	ChatUserID string `json:"chat_user_id"`
}

type RecordScanRequest struct {
	LoyaltyID string `json:"loyalty_id"`
	ScanType  string `json:"scan_type"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type ProfileDTO struct {
	LoyaltyID         string        `json:"loyalty_id"`
	EmployeeID        string        `json:"employee_id"`
	ChatUserID        string        `json:"chat_user_id"`
	Points            ledger.Points `json:"points"`
	ScanCount         int           `json:"scan_count"`
	LastDailyRewardAt *string       `json:"last_daily_reward_at"`
	CreatedAt         string        `json:"created_at"`
}

type ScanEventDTO struct {
	ID        string `json:"id"`
	LoyaltyID string `json:"loyalty_id"`
	ScanType  string `json:"scan_type"`
	Timestamp string `json:"timestamp"`
}

type EmployeeDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type QRPayloadResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProfileDTO(p *ledger.Profile) ProfileDTO {
	dto := ProfileDTO{
		LoyaltyID:  p.LoyaltyID,
		EmployeeID: p.EmployeeID,
		ChatUserID: p.ChatUserID,
		Points:     p.Points,
		ScanCount:  p.ScanCount,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.LastDailyRewardAt != nil {
		s := p.LastDailyRewardAt.UTC().Format(time.RFC3339)
		dto.LastDailyRewardAt = &s
	}
	return dto
}

func toScanEventDTOs(events []ledger.ScanEvent) []ScanEventDTO {
	dtos := make([]ScanEventDTO, len(events))
	for i, ev := range events {
		dtos[i] = ScanEventDTO{
			ID:        ev.ID,
			LoyaltyID: ev.LoyaltyID,
			ScanType:  string(ev.ScanType),
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return dtos
}

func toEmployeeDTO(e *ledger.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        e.ID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Role:      e.Role,
	}
}
