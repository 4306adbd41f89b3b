package enums

import "fmt"

// PurchaseChannel distinguishes where a qualifying purchase happened.
type PurchaseChannel string

const (
	PurchaseChannelOnline  PurchaseChannel = "online"
	PurchaseChannelInstore PurchaseChannel = "instore"
)

var validPurchaseChannels = []PurchaseChannel{
	PurchaseChannelOnline,
	PurchaseChannelInstore,
}

// EntrySource returns the ledger source recorded for this channel.
func (c PurchaseChannel) EntrySource() EntrySource {
	if c == PurchaseChannelInstore {
		return EntrySourcePurchaseInstore
	}
	return EntrySourcePurchaseOnline
}

// IsValid reports whether the value is a known PurchaseChannel.
func (c PurchaseChannel) IsValid() bool {
	for _, candidate := range validPurchaseChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParsePurchaseChannel converts raw input into a PurchaseChannel.
func ParsePurchaseChannel(value string) (PurchaseChannel, error) {
	for _, candidate := range validPurchaseChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase channel %q", value)
}
