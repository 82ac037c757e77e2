package tracking

import (
	"fmt"
	"time"
)

// PaymentType classifies a received payment.
type PaymentType string

const (
	PaymentAdvance PaymentType = "advance"
	PaymentFull    PaymentType = "full-payment"
)

// IsValid returns true for known payment types.
func (p PaymentType) IsValid() bool {
	return p == PaymentAdvance || p == PaymentFull
}

// HistoryEntry records one status the proposal entered.
type HistoryEntry struct {
	Status      State          `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	TriggeredBy string         `json:"triggeredBy"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Payment is a payment received against the proposal.
type Payment struct {
	Amount float64     `json:"amount"`
	Date   time.Time   `json:"date"`
	Type   PaymentType `json:"type"`
}

// Record is the mutable tracking state of one proposal. Only the engine
// mutates records; everyone else reads copies.
type Record struct {
	QueryID    string `json:"queryId"`
	ProposalID string `json:"proposalId"`

	CurrentStatus State          `json:"currentStatus"`
	StatusHistory []HistoryEntry `json:"statusHistory"`

	ProposalSentDate      *time.Time `json:"proposalSentDate,omitempty"`
	ProposalViewedDate    *time.Time `json:"proposalViewedDate,omitempty"`
	LastClientInteraction *time.Time `json:"lastClientInteraction,omitempty"`

	FollowUpCount    int        `json:"followUpCount"`
	LastFollowUpDate *time.Time `json:"lastFollowUpDate,omitempty"`

	ClientResponseCount int       `json:"clientResponseCount"`
	PaymentHistory      []Payment `json:"paymentHistory"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecord creates a draft record with its initialization history entry.
func NewRecord(queryID, proposalID string, now time.Time) (*Record, error) {
	if proposalID == "" || queryID == "" {
		return nil, fmt.Errorf("%w: query and proposal ids are required", ErrInvalidRecord)
	}
	return &Record{
		QueryID:       queryID,
		ProposalID:    proposalID,
		CurrentStatus: StateDraft,
		StatusHistory: []HistoryEntry{{
			Status:      StateDraft,
			Timestamp:   now,
			TriggeredBy: TriggeredBySystem,
		}},
		PaymentHistory: make([]Payment, 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Apply moves the record along rule, appends the history entry and performs
// the side effects keyed by the new status.
func (r *Record) Apply(rule Rule, trigger Trigger, now time.Time, metadata map[string]any) {
	r.CurrentStatus = rule.To
	r.StatusHistory = append(r.StatusHistory, HistoryEntry{
		Status:      rule.To,
		Timestamp:   now,
		TriggeredBy: string(trigger),
		Metadata:    copyMetadata(metadata),
	})

	switch rule.To {
	case StateSent:
		r.ProposalSentDate = timePtr(now)
	case StateViewed:
		r.ProposalViewedDate = timePtr(now)
		r.LastClientInteraction = timePtr(now)
		r.ClientResponseCount++
	case StateFollowUpPending:
		r.FollowUpCount++
		r.LastFollowUpDate = timePtr(now)
	}

	r.UpdatedAt = now
}

// AddPayment appends a payment to the payment history.
func (r *Record) AddPayment(amount float64, paymentType PaymentType, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if !paymentType.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPayment, paymentType)
	}
	r.PaymentHistory = append(r.PaymentHistory, Payment{
		Amount: amount,
		Date:   now,
		Type:   paymentType,
	})
	r.UpdatedAt = now
	return nil
}

// RecordInteraction stamps a client interaction without a state change.
func (r *Record) RecordInteraction(at, now time.Time) {
	r.LastClientInteraction = timePtr(at)
	r.UpdatedAt = now
}

// LastEntry returns the most recent history entry.
func (r *Record) LastEntry() (HistoryEntry, bool) {
	if len(r.StatusHistory) == 0 {
		return HistoryEntry{}, false
	}
	return r.StatusHistory[len(r.StatusHistory)-1], true
}

// TotalPaid sums every recorded payment.
func (r *Record) TotalPaid() float64 {
	var total float64
	for _, p := range r.PaymentHistory {
		total += p.Amount
	}
	return total
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	copied := *r

	if r.StatusHistory != nil {
		copied.StatusHistory = make([]HistoryEntry, len(r.StatusHistory))
		for i, h := range r.StatusHistory {
			h.Metadata = copyMetadata(h.Metadata)
			copied.StatusHistory[i] = h
		}
	}

	if r.PaymentHistory != nil {
		copied.PaymentHistory = make([]Payment, len(r.PaymentHistory))
		copy(copied.PaymentHistory, r.PaymentHistory)
	}

	copied.ProposalSentDate = copyTime(r.ProposalSentDate)
	copied.ProposalViewedDate = copyTime(r.ProposalViewedDate)
	copied.LastClientInteraction = copyTime(r.LastClientInteraction)
	copied.LastFollowUpDate = copyTime(r.LastFollowUpDate)

	return &copied
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	copied := make(map[string]any, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return timePtr(*t)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
