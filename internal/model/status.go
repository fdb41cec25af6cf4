package model

// ListingStatus is the listing state of a hearing.
type ListingStatus string

const (
	// StatusHearingInitialised is the state of a freshly listed hearing.
	StatusHearingInitialised ListingStatus = "HEARING_INITIALISED"

	// StatusHearingResulted is terminal with respect to downgrade.
	StatusHearingResulted ListingStatus = "HEARING_RESULTED"

	// StatusSentForListing is a protected branch state. Result sharing never
	// overwrites it.
	StatusSentForListing ListingStatus = "SENT_FOR_LISTING"
)

// Protected reports whether the status may not be changed by events that
// merely propose a different status.
func (s ListingStatus) Protected() bool {
	return s == StatusHearingResulted || s == StatusSentForListing
}
