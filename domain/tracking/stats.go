package tracking

// Stats aggregates the tracking records of a store.
type Stats struct {
	// Total is the number of tracked proposals.
	Total int `json:"total"`

	// ByStatus counts proposals per current status.
	ByStatus map[State]int `json:"byStatus"`

	// AvgHoursSentToViewed averages the delay between sending and the
	// client first viewing, over proposals that have both dates.
	AvgHoursSentToViewed float64 `json:"avgHoursSentToViewed"`

	// ConversionRate is the percentage of proposals in a converted state.
	ConversionRate float64 `json:"conversionRate"`
}

// ComputeStats aggregates records.
func ComputeStats(records []*Record) Stats {
	stats := Stats{
		Total:    len(records),
		ByStatus: make(map[State]int),
	}

	var totalHours float64
	var timed, converted int
	for _, r := range records {
		stats.ByStatus[r.CurrentStatus]++

		if r.CurrentStatus.IsConverted() {
			converted++
		}

		if r.ProposalSentDate != nil && r.ProposalViewedDate != nil {
			totalHours += r.ProposalViewedDate.Sub(*r.ProposalSentDate).Hours()
			timed++
		}
	}

	if timed > 0 {
		stats.AvgHoursSentToViewed = totalHours / float64(timed)
	}
	if stats.Total > 0 {
		stats.ConversionRate = float64(converted) / float64(stats.Total) * 100
	}

	return stats
}
