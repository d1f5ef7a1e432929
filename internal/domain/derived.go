package domain

import "time"

// DerivedStatus is a read-time label computed from age; it is never stored.
type DerivedStatus string

const (
	DerivedNone     DerivedStatus = ""
	DerivedExpiring DerivedStatus = "expiring"
	DerivedExpired  DerivedStatus = "expired"
)

const (
	expiringAfterDays = 23
	expiredAfterDays  = 30
	msPerDay          = 86_400_000
)

// ParseDerivedStatus recognises the derived labels accepted as list filters.
func ParseDerivedStatus(s string) (DerivedStatus, bool) {
	switch DerivedStatus(s) {
	case DerivedExpiring, DerivedExpired:
		return DerivedStatus(s), true
	}
	return DerivedNone, false
}

// DeriveStatus labels available listings that have not been touched for a while.
func DeriveStatus(status Status, updatedAt, now time.Time) DerivedStatus {
	if status != StatusAvailable {
		return DerivedNone
	}
	ageDays := float64(now.Sub(updatedAt).Milliseconds()) / msPerDay
	switch {
	case ageDays >= expiredAfterDays:
		return DerivedExpired
	case ageDays >= expiringAfterDays:
		return DerivedExpiring
	default:
		return DerivedNone
	}
}

// Derived is a convenience wrapper around DeriveStatus for r.
func (r Room) Derived(now time.Time) DerivedStatus {
	return DeriveStatus(r.Status, r.UpdatedAt, now)
}
