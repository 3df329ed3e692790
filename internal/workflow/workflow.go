// Package workflow contains the order saga orchestrator: the step
// sequencing, compensation stack, and the progress state external observers
// query while an order is in flight.
//
// One OrderWorkflow instance drives one order as a single logical thread of
// execution. The only suspension points are step invocations and the
// inter-step delay, both of which go through the Host boundary; everything
// else — state marks, stack pushes, history appends — commits atomically
// with respect to that instance. Queries take a read lock and never observe
// a half-applied mutation.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"orderflow/internal/sagalog"
)

// Names of the operations the orchestrator dispatches through the host.
// Compensating counterparts are derived from markers as compensate_<marker>.
const (
	ActivityCreateOrder      = "CreateOrder"
	ActivityReserveInventory = "ReserveInventory"
	ActivityVerifyPayment    = "VerifyPayment"
	ActivityVerifyAddress    = "VerifyAddress"
	ActivityCapturePayment   = "CapturePayment"
	ActivityArrangeShipping  = "ArrangeShipping"
)

// Config bounds the orchestrator's two suspension points.
type Config struct {
	// StepTimeout is the maximum wait per step invocation before the host
	// abandons it. Defaults to 30s.
	StepTimeout time.Duration
	// StepDelay is the pause between steps, there so external observers can
	// see each state over a perceptible interval. Zero disables it.
	StepDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.StepTimeout <= 0 {
		c.StepTimeout = 30 * time.Second
	}
	if c.StepDelay < 0 {
		c.StepDelay = 0
	}
	return c
}

// step describes one forward stage of the pipeline.
type step struct {
	activity  string
	needsItem bool
	state     string
	message   func(item string) string
	// push is the compensation marker recorded once the step succeeds.
	// Empty for steps whose effects need no distinct compensating action.
	push marker
	// supersede names a marker reconciled away by this step's own forward
	// effect once it succeeds.
	supersede marker
}

var forwardSteps = []step{
	{
		activity:  ActivityReserveInventory,
		needsItem: true,
		state:     StateInventoryReserved,
		message:   func(item string) string { return "Reserved inventory for " + item },
		push:      markerInventory,
	},
	{
		activity: ActivityVerifyPayment,
		state:    StatePaymentVerified,
		message:  func(string) string { return "Payment verified" },
	},
	{
		activity: ActivityVerifyAddress,
		state:    StateAddressVerified,
		message:  func(string) string { return "Address verified" },
	},
	{
		activity: ActivityCapturePayment,
		state:    StatePaid,
		message:  func(string) string { return "Payment processed" },
		push:     markerPayment,
	},
	{
		activity:  ActivityArrangeShipping,
		needsItem: true,
		state:     StateShipped,
		message:   func(string) string { return "Shipment arranged" },
		push:      markerShipping,
		// Shipping consumes the reservation; firing the inventory
		// compensator after a successful shipment would return the same
		// unit twice.
		supersede: markerInventory,
	},
}

// OrderWorkflow orchestrates a single order saga.
type OrderWorkflow struct {
	id   string
	host Host
	log  sagalog.Repository // nil-safe: transitions are not persisted if nil
	cfg  Config

	mu       sync.RWMutex
	progress ProgressState
	inputs   json.RawMessage

	// stack is only touched by the run goroutine; it is not part of the
	// externally visible state.
	stack compensationStack
}

// New constructs a workflow instance. id is the instance identifier handed
// back to the client that submitted the order; it doubles as the saga ID in
// the durable log.
func New(id string, host Host, log sagalog.Repository, cfg Config) *OrderWorkflow {
	w := &OrderWorkflow{
		id:   id,
		host: host,
		log:  log,
		cfg:  cfg.withDefaults(),
	}
	w.progress = ProgressState{
		State:  StateCreated,
		Status: "Order created",
		History: []HistoryEntry{{
			TS:      host.Now().Format(time.RFC3339Nano),
			Stage:   StateCreated,
			Message: "Order created",
			State:   StateCreated,
		}},
	}
	return w
}

// ID returns the workflow instance identifier.
func (w *OrderWorkflow) ID() string { return w.id }

// Status returns a snapshot of the current progress state. Safe to call at
// any point in the saga's lifetime, including while a step invocation is
// outstanding.
func (w *OrderWorkflow) Status() ProgressState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.progress.clone()
}

// Progress is an alias for Status, kept for compatibility with clients that
// query under either name.
func (w *OrderWorkflow) Progress() ProgressState {
	return w.Status()
}

// Signal stores an informational payload on the instance. The payload is
// retained for inspection but never consulted by the orchestration logic.
func (w *OrderWorkflow) Signal(payload json.RawMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inputs = append(json.RawMessage(nil), payload...)
}

// Inputs returns the payload most recently received via Signal, or nil.
func (w *OrderWorkflow) Inputs() json.RawMessage {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append(json.RawMessage(nil), w.inputs...)
}

// Run drives the saga to a terminal state. On full success it returns the
// completion message for the order. After a rolled-back failure it returns
// the same message: callers distinguish the outcomes through the final
// progress state tag (shipped vs compensated), not the return string. The
// only error return is a failed compensation — the rollback stopped partway
// and the saga needs attention — or a cancelled context.
func (w *OrderWorkflow) Run(ctx context.Context, item string) (string, error) {
	w.setItem(item)
	w.record(ctx, sagalog.StatusStarted, StateCreated, item, nil)

	orderID, err := w.host.Execute(ctx, ActivityCreateOrder, w.cfg.StepTimeout)
	if err != nil {
		// No order record exists yet, so there is nothing to roll back.
		w.record(ctx, sagalog.StatusFailed, StateCreated, "", []string{err.Error()})
		return "", fmt.Errorf("create order: %w", err)
	}
	w.setOrderID(orderID)
	w.stack.push(markerOrder)

	if err := w.host.Sleep(ctx, w.cfg.StepDelay); err != nil {
		return "", err
	}

	for _, st := range forwardSteps {
		args := []string{orderID}
		if st.needsItem {
			args = append(args, item)
		}

		if _, err := w.host.Execute(ctx, st.activity, w.cfg.StepTimeout, args...); err != nil {
			if cerr := w.compensate(ctx, orderID, item, st.activity, err); cerr != nil {
				return "", cerr
			}
			return completionMessage(orderID), nil
		}

		if st.push != "" {
			w.stack.push(st.push)
		}
		if st.supersede != "" {
			w.stack.remove(st.supersede)
		}
		w.mark(st.state, st.message(item))
		w.record(ctx, sagalog.StatusStepDone, st.state, "", nil)

		if err := w.host.Sleep(ctx, w.cfg.StepDelay); err != nil {
			return "", err
		}
	}

	w.record(ctx, sagalog.StatusCompleted, StateShipped, "", nil)
	return completionMessage(orderID), nil
}

// compensate pops the stack and undoes each completed step in reverse
// insertion order. A compensator failure is fatal: the remaining markers are
// left unactioned and the error is surfaced to the caller.
func (w *OrderWorkflow) compensate(ctx context.Context, orderID, item, failedActivity string, cause error) error {
	slog.WarnContext(ctx, "saga step failed, rolling back",
		"saga_id", w.id, "order_id", orderID, "step", failedActivity, "error", cause)

	w.mark(StateCompensating, fmt.Sprintf("%s failed: %v", failedActivity, cause))
	w.record(ctx, sagalog.StatusCompensating, StateCompensating, "", []string{cause.Error()})

	for {
		m, ok := w.stack.pop()
		if !ok {
			break
		}
		if _, err := w.host.Execute(ctx, m.activityName(), w.cfg.StepTimeout, orderID, item); err != nil {
			w.record(ctx, sagalog.StatusFailed, m.activityName(), "", []string{cause.Error(), err.Error()})
			return fmt.Errorf("compensation %s failed: %w", m.activityName(), err)
		}
		w.markStage(m.activityName(), StateCompensating, m.message())
		w.record(ctx, sagalog.StatusCompensating, m.activityName(), "", nil)
	}

	w.mark(StateCompensated, fmt.Sprintf("Order %s rolled back", orderID))
	w.record(ctx, sagalog.StatusCompensated, StateCompensated, "", nil)
	return nil
}

// mark commits a state transition and appends its history entry.
func (w *OrderWorkflow) mark(state, message string) {
	w.markStage(state, state, message)
}

func (w *OrderWorkflow) markStage(stage, state, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress.State = state
	w.progress.Status = message
	w.progress.History = append(w.progress.History, HistoryEntry{
		TS:      w.host.Now().Format(time.RFC3339Nano),
		Stage:   stage,
		Message: message,
		State:   state,
	})
}

func (w *OrderWorkflow) setItem(item string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress.Item = item
}

func (w *OrderWorkflow) setOrderID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress.OrderID = id
}

// record appends an entry to the durable saga log. Log failures are reported
// but never interrupt the saga itself.
func (w *OrderWorkflow) record(ctx context.Context, status sagalog.Status, stage, payload string, errs []string) {
	if w.log == nil {
		return
	}
	if err := w.log.Save(ctx, sagalog.NewEntry(ctx, w.id, status, stage, payload, errs)); err != nil {
		slog.WarnContext(ctx, "saga log write failed", "saga_id", w.id, "error", err)
	}
}

func completionMessage(orderID string) string {
	return fmt.Sprintf("Order %s completed successfully.", orderID)
}
