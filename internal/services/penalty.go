package services

import (
	"time"

	"library-api/internal/models"
)

// PenaltyStatus reads a member's penalty state at the given instant without
// mutating anything.
//
// Rules:
//   - PenaltyEndDate set and still in the future → the member is barred.
//   - Otherwise, a still-set Penalty flag means the window has lapsed and the
//     member is due the lazy reset; the caller clears and persists.
//
// The flag and the end date are evaluated independently so the transient
// expired-but-still-flagged state is observable exactly once, on the next
// status check.
func PenaltyStatus(member *models.Member, now time.Time) (inPenalty bool, needsReset bool) {
	if member.PenaltyEndDate != nil && member.PenaltyEndDate.After(now) {
		return true, false
	}
	if member.Penalty {
		return false, true
	}
	return false, false
}

// applyPenalty puts the member into a penalty window of PenaltyDays starting
// at now. The caller persists.
func applyPenalty(member *models.Member, now time.Time) {
	end := now.AddDate(0, 0, PenaltyDays)
	member.Penalty = true
	member.PenaltyEndDate = &end
}

// clearPenalty resets both penalty fields. The caller persists.
func clearPenalty(member *models.Member) {
	member.Penalty = false
	member.PenaltyEndDate = nil
}
