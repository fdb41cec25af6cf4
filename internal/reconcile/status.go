package reconcile

import "github.com/hmcts/cpp-context-progression-sub010/internal/model"

// NextStatus returns the listing status a hearing moves to when an event
// proposes proposed while the hearing is in current, and whether it changed.
//
// HEARING_RESULTED and SENT_FOR_LISTING are protected from each other and
// from HEARING_INITIALISED: once a hearing carries either, no proposal moves
// it. Any other current status, including none, takes the proposal.
func NextStatus(current, proposed model.ListingStatus) (model.ListingStatus, bool) {
	if proposed == "" || proposed == current || current.Protected() {
		return current, false
	}
	return proposed, true
}
