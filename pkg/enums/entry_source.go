package enums

import "fmt"

// EntrySource maps to the entry_source_enum enum in Postgres. It records what
// kind of activity produced a ledger entry.
type EntrySource string

const (
	EntrySourcePurchaseOnline  EntrySource = "purchase_online"
	EntrySourcePurchaseInstore EntrySource = "purchase_instore"
	EntrySourceReferral        EntrySource = "referral"
	EntrySourceSocialShare     EntrySource = "social_share"
	EntrySourceReview          EntrySource = "review"
	EntrySourceRedemption      EntrySource = "redemption"
)

var validEntrySources = []EntrySource{
	EntrySourcePurchaseOnline,
	EntrySourcePurchaseInstore,
	EntrySourceReferral,
	EntrySourceSocialShare,
	EntrySourceReview,
	EntrySourceRedemption,
}

// IsValid reports whether the value matches the canonical entry source enum.
func (s EntrySource) IsValid() bool {
	for _, candidate := range validEntrySources {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPurchase reports whether the source is one of the purchase channels.
func (s EntrySource) IsPurchase() bool {
	return s == EntrySourcePurchaseOnline || s == EntrySourcePurchaseInstore
}

// ParseEntrySource converts raw input into an EntrySource.
func ParseEntrySource(value string) (EntrySource, error) {
	for _, candidate := range validEntrySources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry source %q", value)
}
