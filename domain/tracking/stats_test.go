package tracking

import (
	"math"
	"testing"
	"time"
)

func TestComputeStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mk := func(id string, status State) *Record {
		r := newTestRecord(t, now)
		r.ProposalID = id
		r.CurrentStatus = status
		return r
	}

	viewedFast := mk("a", StateViewed)
	viewedFast.ProposalSentDate = timePtr(now)
	viewedFast.ProposalViewedDate = timePtr(now.Add(2 * time.Hour))

	booked := mk("b", StateBookingConfirmed)
	booked.ProposalSentDate = timePtr(now)
	booked.ProposalViewedDate = timePtr(now.Add(6 * time.Hour))

	confirmed := mk("c", StateConfirmed)
	draft := mk("d", StateDraft)

	stats := ComputeStats([]*Record{viewedFast, booked, confirmed, draft})

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.ByStatus[StateViewed] != 1 || stats.ByStatus[StateDraft] != 1 {
		t.Errorf("ByStatus = %v", stats.ByStatus)
	}
	if math.Abs(stats.AvgHoursSentToViewed-4) > 1e-9 {
		t.Errorf("AvgHoursSentToViewed = %v, want 4", stats.AvgHoursSentToViewed)
	}
	if math.Abs(stats.ConversionRate-50) > 1e-9 {
		t.Errorf("ConversionRate = %v, want 50", stats.ConversionRate)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	t.Parallel()

	stats := ComputeStats(nil)
	if stats.Total != 0 || stats.ConversionRate != 0 || stats.AvgHoursSentToViewed != 0 {
		t.Errorf("ComputeStats(nil) = %+v, want zero values", stats)
	}
	if stats.ByStatus == nil {
		t.Error("ByStatus should be initialized")
	}
}
