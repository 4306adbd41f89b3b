package enums

import "fmt"

// EntryStatus maps to the entry_status_enum enum in Postgres. Pending entries
// do not count toward the spendable balance until they complete.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
)

var validEntryStatuses = []EntryStatus{
	EntryStatusPending,
	EntryStatusCompleted,
}

// IsValid reports whether the value matches the canonical entry status enum.
func (s EntryStatus) IsValid() bool {
	for _, candidate := range validEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEntryStatus converts raw input into an EntryStatus.
func ParseEntryStatus(value string) (EntryStatus, error) {
	for _, candidate := range validEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry status %q", value)
}
