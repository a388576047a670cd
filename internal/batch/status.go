package batch

// validTransitions defines allowed item state transitions.
// Key is the "from" status, value is the list of valid "to" statuses.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusSkipped, StatusAnalyzing},
	StatusSkipped:   {StatusPending},
	StatusAnalyzing: {StatusImporting, StatusSuccess, StatusWarning, StatusError, StatusPending},
	StatusImporting: {StatusSuccess, StatusWarning, StatusError, StatusPending}, // pending on interrupt
	StatusSuccess:   {}, // terminal
	StatusWarning:   {StatusAnalyzing}, // manual retry only
	StatusError:     {StatusAnalyzing}, // retry
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	valid, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the sweep never revisits this status on its own.
// Skipped and warning items can still be moved manually.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusWarning || s == StatusSkipped
}

// InFlight returns true while the orchestrator is working on the item.
// Retry controls must be disabled for in-flight items.
func (s Status) InFlight() bool {
	return s == StatusAnalyzing || s == StatusImporting
}

// Completed returns true for statuses counted toward the completed total.
func (s Status) Completed() bool {
	return s == StatusSuccess || s == StatusWarning || s == StatusError
}
