package tracking

import (
	"fmt"
	"math"
	"time"
)

// Day is the unit of every elapsed-time condition.
const Day = 24 * time.Hour

// Guard is a conjunction of conditions over a tracking record. Unset fields
// are not checked.
type Guard struct {
	// DaysSinceLastActivity is the minimum number of whole days since the
	// last client interaction.
	DaysSinceLastActivity *int `json:"daysSinceLastActivity,omitempty" yaml:"days_since_last_activity,omitempty"`

	// FollowUpCount is the minimum number of follow-ups already made.
	FollowUpCount *int `json:"followUpCount,omitempty" yaml:"follow_up_count,omitempty"`

	// PaymentReceived requires at least one recorded payment.
	PaymentReceived bool `json:"paymentReceived,omitempty" yaml:"payment_received,omitempty"`

	// ClientResponseRequired is informational and always satisfied.
	ClientResponseRequired bool `json:"clientResponseRequired,omitempty" yaml:"client_response_required,omitempty"`
}

// Int returns a pointer to v, for building guards.
func Int(v int) *int {
	return &v
}

// DaysBetween returns the number of whole days elapsed from from to to,
// rounded down. A to before from gives a negative count.
func DaysBetween(from, to time.Time) int {
	return int(math.Floor(float64(to.Sub(from)) / float64(Day)))
}

// Evaluate reports whether record satisfies guard at time now. When it does
// not, the returned string names the first failing condition.
func Evaluate(record *Record, guard *Guard, now time.Time) (bool, string) {
	if guard == nil {
		return true, ""
	}

	if guard.DaysSinceLastActivity != nil {
		if record.LastClientInteraction == nil {
			return false, "no client interaction recorded"
		}
		days := DaysBetween(*record.LastClientInteraction, now)
		if days < *guard.DaysSinceLastActivity {
			return false, fmt.Sprintf("%d days since last activity, need %d", days, *guard.DaysSinceLastActivity)
		}
	}

	if guard.FollowUpCount != nil && record.FollowUpCount < *guard.FollowUpCount {
		return false, fmt.Sprintf("%d follow-ups made, need %d", record.FollowUpCount, *guard.FollowUpCount)
	}

	if guard.PaymentReceived && len(record.PaymentHistory) == 0 {
		return false, "no payment received"
	}

	return true, ""
}
