package domain

import "time"

// OTPEntry is the transient verification state for one email address.
// At most one live entry exists per email; issuing a new code overwrites
// whatever was stored before. Expiry is checked lazily at verification
// time, the store's own TTL only bounds memory.
type OTPEntry struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expires_at"` // Unix seconds
	Verified  bool   `json:"verified"`
}

// Expired reports whether the entry is no longer valid at time now.
// An entry expires exactly at ExpiresAt, not one second after.
func (e OTPEntry) Expired(now time.Time) bool {
	return now.Unix() >= e.ExpiresAt
}
