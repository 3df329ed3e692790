package workflow

// Progress-state tags. The happy path advances strictly left to right;
// a failed saga moves through compensating to the terminal compensated tag.
const (
	StateCreated           = "created"
	StateInventoryReserved = "inventory_reserved"
	StatePaymentVerified   = "payment_verified"
	StateAddressVerified   = "address_verified"
	StatePaid              = "paid"
	StateShipped           = "shipped"
	StateCompensating      = "compensating"
	StateCompensated       = "compensated"
)

// ProgressState is the externally queryable view of one order saga — what a
// GUI polls to render a live timeline. History is append-only: entries are
// never removed or rewritten.
type ProgressState struct {
	OrderID string         `json:"orderId"`
	Item    string         `json:"item"`
	State   string         `json:"state"`
	Status  string         `json:"status"`
	History []HistoryEntry `json:"history"`
}

// HistoryEntry records one committed transition or compensation.
type HistoryEntry struct {
	TS      string `json:"ts"` // RFC3339
	Stage   string `json:"stage"`
	Message string `json:"message"`
	State   string `json:"state"`
}

// clone deep-copies the state so a query snapshot never aliases the history
// slice the run loop keeps appending to.
func (p ProgressState) clone() ProgressState {
	out := p
	out.History = make([]HistoryEntry, len(p.History))
	copy(out.History, p.History)
	return out
}
