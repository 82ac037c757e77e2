package tracking

import "time"

// FollowUpPolicy holds the detector thresholds, in whole days.
type FollowUpPolicy struct {
	// SentAfterDays is the quiet period after the last client interaction
	// before a sent proposal needs its first follow-up.
	SentAfterDays int `json:"sent_after_days" yaml:"sent_after_days"`

	// EscalateAfterDays is the wait after a follow-up while fewer than
	// MaxFollowUps were made.
	EscalateAfterDays int `json:"escalate_after_days" yaml:"escalate_after_days"`

	// NoResponseAfterDays is the wait after the last follow-up once
	// MaxFollowUps were made.
	NoResponseAfterDays int `json:"no_response_after_days" yaml:"no_response_after_days"`

	// MaxFollowUps is the number of follow-ups before giving up.
	MaxFollowUps int `json:"max_follow_ups" yaml:"max_follow_ups"`
}

// DefaultFollowUpPolicy returns the standard thresholds.
func DefaultFollowUpPolicy() FollowUpPolicy {
	return FollowUpPolicy{
		SentAfterDays:       3,
		EscalateAfterDays:   2,
		NoResponseAfterDays: 4,
		MaxFollowUps:        2,
	}
}

// IsFollowUpDue reports whether record needs a proactive transition at now.
//
// A sent proposal is due once SentAfterDays passed since the last client
// interaction; without any recorded interaction it is never due. A pending
// follow-up is due EscalateAfterDays after the last follow-up while fewer
// than MaxFollowUps were made, and NoResponseAfterDays after it afterwards.
func (p FollowUpPolicy) IsFollowUpDue(record *Record, now time.Time) bool {
	switch record.CurrentStatus {
	case StateSent:
		if record.LastClientInteraction == nil {
			return false
		}
		return DaysBetween(*record.LastClientInteraction, now) >= p.SentAfterDays

	case StateFollowUpPending:
		if record.LastFollowUpDate == nil {
			return false
		}
		days := DaysBetween(*record.LastFollowUpDate, now)
		if record.FollowUpCount < p.MaxFollowUps {
			return days >= p.EscalateAfterDays
		}
		return days >= p.NoResponseAfterDays

	default:
		return false
	}
}

// DueTrigger returns the trigger a due record should fire.
func DueTrigger(status State) (Trigger, bool) {
	switch status {
	case StateSent:
		return TriggerFollowUpDue, true
	case StateFollowUpPending:
		return TriggerNoResponseDetected, true
	default:
		return "", false
	}
}

// DueRecords returns every due record, in the order of records.
func (p FollowUpPolicy) DueRecords(records []*Record, now time.Time) []*Record {
	due := make([]*Record, 0, len(records))
	for _, r := range records {
		if p.IsFollowUpDue(r, now) {
			due = append(due, r)
		}
	}
	return due
}

// ScanForFollowUp returns the proposal ids of every due record, in the
// order of records.
func (p FollowUpPolicy) ScanForFollowUp(records []*Record, now time.Time) []string {
	var ids []string
	for _, r := range p.DueRecords(records, now) {
		ids = append(ids, r.ProposalID)
	}
	return ids
}
