// Package qr encodes loyalty enrollment payloads as URL strings. A
// renderer external to this module turns the URL into a scannable image.
package qr

import (
	"fmt"
	"net/url"

	"github.com/warp/loyalty-ledger/ledger"
)

// The payload embeds a fixed enrollment display value for points rather
// than the profile's live balance: the QR code is an enrollment artifact,
// not a balance snapshot. Kept deliberately; see DESIGN.md.
const (
	payloadPoints   = "100"
	payloadScanType = string(ledger.ScanTypeIPhone)
)

// EncodePayload builds the URL-encoded enrollment payload for a profile,
// rooted at baseHost. Pure function; the only failure mode is a malformed
// base host, which is propagated.
func EncodePayload(baseHost string, emp ledger.Employee, p ledger.Profile) (string, error) {
	u, err := url.Parse(baseHost)
	if err != nil {
		return "", fmt.Errorf("invalid base host %q: %w", baseHost, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base host %q: missing scheme or host", baseHost)
	}

	q := url.Values{}
	q.Set("firstName", emp.FirstName)
	q.Set("lastName", emp.LastName)
	q.Set("role", emp.Role)
	q.Set("employeeId", emp.ID)
	q.Set("chatUserId", p.ChatUserID)
	q.Set("loyaltyId", p.LoyaltyID)
	q.Set("points", payloadPoints)
	q.Set("scanType", payloadScanType)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
