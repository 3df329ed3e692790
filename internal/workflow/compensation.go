package workflow

// marker identifies a completed forward step that still has a pending
// compensating action.
type marker string

const (
	markerOrder     marker = "order"
	markerInventory marker = "inventory_reserve"
	markerPayment   marker = "payment"
	markerShipping  marker = "shipping"
)

// activityName returns the compensating operation dispatched for the marker.
func (m marker) activityName() string {
	return "compensate_" + string(m)
}

// message returns the history message appended once the compensator for the
// marker has completed.
func (m marker) message() string {
	switch m {
	case markerOrder:
		return "Closed failed order"
	case markerInventory:
		return "Returned reserved inventory"
	case markerPayment:
		return "Refunded payment"
	case markerShipping:
		return "Cancelled shipping"
	}
	return "Compensated " + string(m)
}

// compensationStack tracks markers in insertion order. Rollback pops from
// the tail, so the last successful step is undone first.
type compensationStack struct {
	markers []marker
}

func (s *compensationStack) push(m marker) {
	s.markers = append(s.markers, m)
}

func (s *compensationStack) pop() (marker, bool) {
	if len(s.markers) == 0 {
		return "", false
	}
	m := s.markers[len(s.markers)-1]
	s.markers = s.markers[:len(s.markers)-1]
	return m, true
}

// remove drops a marker wherever it sits in the stack without actioning it.
// Used by the reconciliation rule: once shipping has consumed the
// reservation, firing the inventory compensator as well would return the
// same unit twice.
func (s *compensationStack) remove(m marker) bool {
	for i, cur := range s.markers {
		if cur == m {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return true
		}
	}
	return false
}

func (s *compensationStack) len() int {
	return len(s.markers)
}
