package workflow_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/activities"
	"orderflow/internal/host"
	"orderflow/internal/store"
	"orderflow/internal/workflow"
)

func newPipeline(t *testing.T, widgetStock int) (*workflow.OrderWorkflow, store.Store) {
	t.Helper()

	st := store.NewMemoryStore()
	if err := st.PutInventory(context.Background(), "Widget", store.InventoryRecord{
		SKU:       "SKU-0001",
		Price:     9.99,
		Available: widgetStock,
		Location:  "WH-TEST",
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	h := host.New(host.Config{})
	activities.New(st).RegisterAll(h)

	return workflow.New("saga-it", h, nil, workflow.Config{StepTimeout: 5 * time.Second}), st
}

func TestSagaEndToEndShipsAndDecrementsStock(t *testing.T) {
	t.Parallel()

	wf, st := newPipeline(t, 5)

	msg, err := wf.Run(context.Background(), "Widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prog := wf.Status()
	if prog.State != workflow.StateShipped {
		t.Fatalf("final state = %q, want %q", prog.State, workflow.StateShipped)
	}
	if prog.OrderID == "" {
		t.Fatal("missing order id in progress state")
	}
	if want := "Order " + prog.OrderID + " completed successfully."; msg != want {
		t.Fatalf("message = %q, want %q", msg, want)
	}

	order, err := st.GetOrder(context.Background(), prog.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != store.OrderShipped ||
		order.PaymentStatus != store.PaymentPaid ||
		order.ShippingStatus != store.ShippingShipped ||
		order.AddressStatus != store.AddressVerified {
		t.Fatalf("unexpected final order record: %+v", order)
	}

	inv, err := st.GetInventory(context.Background(), "Widget")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if inv.Available != 4 || inv.Reserved != 0 {
		t.Fatalf("inventory after shipment: available=%d reserved=%d, want 4/0", inv.Available, inv.Reserved)
	}
}

func TestSagaEndToEndOutOfStockRollsBack(t *testing.T) {
	t.Parallel()

	wf, st := newPipeline(t, 0)

	if _, err := wf.Run(context.Background(), "Widget"); err != nil {
		t.Fatalf("rolled-back saga should not return an error: %v", err)
	}

	prog := wf.Status()
	if prog.State != workflow.StateCompensated {
		t.Fatalf("final state = %q, want %q", prog.State, workflow.StateCompensated)
	}

	order, err := st.GetOrder(context.Background(), prog.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != store.OrderProcessingFailure {
		t.Fatalf("order status = %q, want %q", order.Status, store.OrderProcessingFailure)
	}

	inv, err := st.GetInventory(context.Background(), "Widget")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if inv.Available != 0 || inv.Reserved != 0 {
		t.Fatalf("inventory must be untouched: available=%d reserved=%d", inv.Available, inv.Reserved)
	}
}
