package tracking

import "fmt"

// Rule declares that Trigger moves a proposal from From to To, provided the
// optional Guard holds.
type Rule struct {
	From    State   `json:"from" yaml:"from"`
	To      State   `json:"to" yaml:"to"`
	Trigger Trigger `json:"trigger" yaml:"trigger"`
	Guard   *Guard  `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// String renders the rule as "from --trigger--> to".
func (r Rule) String() string {
	return fmt.Sprintf("%s --%s--> %s", r.From, r.Trigger, r.To)
}

// Validate checks the rule against the vocabulary.
func (r Rule) Validate() error {
	if r.From == "" {
		return fmt.Errorf("%w: empty source state", ErrInvalidRule)
	}
	if !r.From.IsValid() && !r.From.IsPseudo() {
		return fmt.Errorf("%w: unknown source state %q", ErrInvalidRule, r.From)
	}
	if !r.To.IsValid() {
		return fmt.Errorf("%w: %q is not an enterable state", ErrInvalidRule, r.To)
	}
	if !r.Trigger.IsValid() {
		return fmt.Errorf("%w: unknown trigger %q", ErrInvalidRule, r.Trigger)
	}
	return nil
}

// RuleTable is an ordered, read-only list of rules. Declaration order is
// significant: the first matching rule wins.
type RuleTable struct {
	rules []Rule
}

// NewRuleTable validates rules and returns a table preserving their order.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	copied := make([]Rule, len(rules))
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r, err)
		}
		copied[i] = r
	}
	return &RuleTable{rules: copied}, nil
}

// Rules returns a copy of the rules in declaration order.
func (t *RuleTable) Rules() []Rule {
	rules := make([]Rule, len(t.rules))
	copy(rules, t.rules)
	return rules
}

// Len returns the number of rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}

// Candidates returns every rule matching from and trigger, in order.
func (t *RuleTable) Candidates(from State, trigger Trigger) []Rule {
	var matches []Rule
	for _, r := range t.rules {
		if r.From == from && r.Trigger == trigger {
			matches = append(matches, r)
		}
	}
	return matches
}

// Match returns the first rule matching from and trigger.
func (t *RuleTable) Match(from State, trigger Trigger) (Rule, bool) {
	for _, r := range t.rules {
		if r.From == from && r.Trigger == trigger {
			return r, true
		}
	}
	return Rule{}, false
}

// TriggersFrom returns the distinct triggers accepted in state from, in
// declaration order.
func (t *RuleTable) TriggersFrom(from State) []Trigger {
	seen := make(map[Trigger]bool)
	var triggers []Trigger
	for _, r := range t.rules {
		if r.From == from && !seen[r.Trigger] {
			seen[r.Trigger] = true
			triggers = append(triggers, r.Trigger)
		}
	}
	return triggers
}

// DefaultRules returns the standard proposal lifecycle rules.
func DefaultRules() []Rule {
	return []Rule{
		{From: StateAssigned, To: StateDraft, Trigger: TriggerProposalCreated},
		{From: StateInProgress, To: StateDraft, Trigger: TriggerProposalCreated},
		{From: StateDraft, To: StateSent, Trigger: TriggerProposalSent},
		{From: StateSent, To: StateViewed, Trigger: TriggerProposalViewed},
		{
			From:    StateSent,
			To:      StateFollowUpPending,
			Trigger: TriggerFollowUpDue,
			Guard:   &Guard{DaysSinceLastActivity: Int(3), FollowUpCount: Int(0)},
		},
		{From: StateFollowUpPending, To: StateViewed, Trigger: TriggerProposalViewed},
		{
			From:    StateFollowUpPending,
			To:      StateNoResponse,
			Trigger: TriggerNoResponseDetected,
			Guard:   &Guard{DaysSinceLastActivity: Int(7), FollowUpCount: Int(2)},
		},
		{From: StateNoResponse, To: StateViewed, Trigger: TriggerProposalViewed},
		{
			From:    StateViewed,
			To:      StateModificationRequested,
			Trigger: TriggerClientFeedback,
			Guard:   &Guard{ClientResponseRequired: true},
		},
		{From: StateModificationRequested, To: StateRevisedSent, Trigger: TriggerProposalSent},
		{From: StateRevisedSent, To: StateViewed, Trigger: TriggerProposalViewed},
		{From: StateViewed, To: StateInterested, Trigger: TriggerClientInterested},
		{From: StateViewed, To: StateNegotiation, Trigger: TriggerNegotiationStarted},
		{From: StateInterested, To: StateNegotiation, Trigger: TriggerNegotiationStarted},
		{From: StateNegotiation, To: StateConfirmed, Trigger: TriggerClientInterested},
		{
			From:    StateConfirmed,
			To:      StateAdvanceReceived,
			Trigger: TriggerPaymentReceived,
			Guard:   &Guard{PaymentReceived: true},
		},
		{From: StateAdvanceReceived, To: StateBookingConfirmed, Trigger: TriggerBookingCompleted},
	}
}

// DefaultRuleTable returns a table over DefaultRules.
func DefaultRuleTable() *RuleTable {
	table, err := NewRuleTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return table
}
