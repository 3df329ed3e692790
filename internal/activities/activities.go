// Package activities implements the step handlers of the order pipeline.
//
// Every handler follows the same contract: read the current record(s),
// verify they are in the exact predecessor state — failing with a "not in
// the proper state" error and no mutation otherwise — then apply exactly one
// transition and persist it. A handler re-invoked after its prior attempt
// already persisted finds the precondition gone and is rejected instead of
// double-applying. Compensators are the exception: re-running one that has
// already completed reports success, so the host can retry them to
// completion.
package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/host"
	"orderflow/internal/store"
)

// Activities holds the dependencies shared by every step handler.
type Activities struct {
	store store.Store
	locks *store.KeyMutex
}

// New constructs the handler set against the given record store.
func New(st store.Store) *Activities {
	return &Activities{
		store: st,
		locks: store.NewKeyMutex(),
	}
}

// Registrar is the subset of the host used to wire the handlers.
type Registrar interface {
	Register(name string, fn host.ActivityFunc)
}

// RegisterAll wires every named operation of the pipeline into the registry.
func (a *Activities) RegisterAll(r Registrar) {
	r.Register("CreateOrder", func(ctx context.Context, _ ...string) (string, error) {
		return a.CreateOrder(ctx)
	})
	r.Register("ReserveInventory", orderItemArgs(a.ReserveInventory))
	r.Register("VerifyPayment", orderArg(a.VerifyPayment))
	r.Register("VerifyAddress", orderArg(a.VerifyAddress))
	r.Register("CapturePayment", orderArg(a.CapturePayment))
	r.Register("ArrangeShipping", orderItemArgs(a.ArrangeShipping))
	r.Register("compensate_order", orderItemArgs(func(ctx context.Context, orderID, _ string) (string, error) {
		return a.CloseFailedOrder(ctx, orderID)
	}))
	r.Register("compensate_inventory_reserve", orderItemArgs(a.CancelInventoryReservation))
	r.Register("compensate_payment", orderItemArgs(func(ctx context.Context, orderID, _ string) (string, error) {
		return a.RefundPayment(ctx, orderID)
	}))
	r.Register("compensate_shipping", orderItemArgs(a.CancelShipping))
}

func orderArg(fn func(context.Context, string) (string, error)) host.ActivityFunc {
	return func(ctx context.Context, args ...string) (string, error) {
		if len(args) < 1 {
			return "", errors.New("missing order id argument")
		}
		return fn(ctx, args[0])
	}
}

func orderItemArgs(fn func(context.Context, string, string) (string, error)) host.ActivityFunc {
	return func(ctx context.Context, args ...string) (string, error) {
		if len(args) < 2 {
			return "", errors.New("missing order id or item argument")
		}
		return fn(ctx, args[0], args[1])
	}
}

func notInProperState(orderID string) error {
	return fmt.Errorf("order %s not in the proper state", orderID)
}

// CreateOrder persists a fresh order record and returns its generated ID.
func (a *Activities) CreateOrder(ctx context.Context) (string, error) {
	orderID := uuid.NewString()
	if err := a.store.PutOrder(ctx, orderID, store.NewOrderRecord()); err != nil {
		return "", fmt.Errorf("create order record: %w", err)
	}
	slog.InfoContext(ctx, "order created", "order_id", orderID)
	return orderID, nil
}

// ReserveInventory promises one unit of the item to the order: available
// goes down, reserved goes up, and the order advances to reserved. The
// per-item lock serializes the read-modify-write against concurrent
// reservations of the same item.
func (a *Activities) ReserveInventory(ctx context.Context, orderID, item string) (string, error) {
	unlock := a.locks.Lock(inventoryLockKey(item))
	defer unlock()

	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.Status != store.OrderCreated || order.ShippingStatus != store.ShippingPending {
		return "", notInProperState(orderID)
	}

	inv, err := a.store.GetInventory(ctx, item)
	if err != nil {
		return "", fmt.Errorf("item %s: %w", item, err)
	}
	if inv.Available <= 0 {
		return "", fmt.Errorf("item %s is out of stock", item)
	}

	inv.Available--
	inv.Reserved++
	inv.UpdatedAt = time.Now().UTC()
	if err := a.store.PutInventory(ctx, item, inv); err != nil {
		return "", fmt.Errorf("update inventory for %s: %w", item, err)
	}

	order.Item = item
	order.Status = store.OrderReserved
	order.ShippingStatus = store.ShippingReserved
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "inventory reserved", "order_id", orderID, "item", item, "available", inv.Available)
	return fmt.Sprintf("Inventory for item %s reserved for order %s.", item, orderID), nil
}

// VerifyPayment performs the payment authorization check.
func (a *Activities) VerifyPayment(ctx context.Context, orderID string) (string, error) {
	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.ShippingStatus != store.ShippingReserved || order.PaymentStatus != store.PaymentPending {
		return "", notInProperState(orderID)
	}

	order.PaymentStatus = store.PaymentVerified
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}
	return fmt.Sprintf("Payment for order %s verified.", orderID), nil
}

// VerifyAddress performs the address verification check.
func (a *Activities) VerifyAddress(ctx context.Context, orderID string) (string, error) {
	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.PaymentStatus != store.PaymentVerified ||
		order.ShippingStatus != store.ShippingReserved ||
		order.AddressStatus != store.AddressPending {
		return "", notInProperState(orderID)
	}

	order.AddressStatus = store.AddressVerified
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}
	return fmt.Sprintf("Address for order %s verified.", orderID), nil
}

// CapturePayment settles the payment after verification and address checks.
func (a *Activities) CapturePayment(ctx context.Context, orderID string) (string, error) {
	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.AddressStatus != store.AddressVerified ||
		order.PaymentStatus != store.PaymentVerified ||
		order.ShippingStatus != store.ShippingReserved {
		return "", notInProperState(orderID)
	}

	order.PaymentStatus = store.PaymentPaid
	order.Status = store.OrderProcessed
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}
	return fmt.Sprintf("Payment for order %s processed.", orderID), nil
}

// ArrangeShipping finalizes the order as shipped. Shipping consumes the
// reservation, so only reserved is decremented — available was already
// decremented when the unit was promised.
func (a *Activities) ArrangeShipping(ctx context.Context, orderID, item string) (string, error) {
	unlock := a.locks.Lock(inventoryLockKey(item))
	defer unlock()

	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.PaymentStatus != store.PaymentPaid ||
		order.Status != store.OrderProcessed ||
		order.ShippingStatus != store.ShippingReserved {
		return "", notInProperState(orderID)
	}

	inv, err := a.store.GetInventory(ctx, item)
	if err != nil {
		return "", fmt.Errorf("item %s: %w", item, err)
	}
	if inv.Reserved <= 0 {
		return "", fmt.Errorf("item %s has no reserved stock to ship", item)
	}

	inv.Reserved--
	inv.UpdatedAt = time.Now().UTC()
	if err := a.store.PutInventory(ctx, item, inv); err != nil {
		return "", fmt.Errorf("update inventory for %s: %w", item, err)
	}

	order.ShippingStatus = store.ShippingShipped
	order.Status = store.OrderShipped
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "shipping arranged", "order_id", orderID, "item", item)
	return "Shipping arranged.", nil
}

// CancelInventoryReservation returns the promised unit to available stock
// and cancels the order. Re-running after a completed cancellation reports
// success without touching the counts.
func (a *Activities) CancelInventoryReservation(ctx context.Context, orderID, item string) (string, error) {
	unlock := a.locks.Lock(inventoryLockKey(item))
	defer unlock()

	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.ShippingStatus == store.ShippingCancelled {
		return fmt.Sprintf("Reservation for order %s already cancelled.", orderID), nil
	}
	if order.ShippingStatus != store.ShippingReserved {
		return "", notInProperState(orderID)
	}

	inv, err := a.store.GetInventory(ctx, item)
	if err != nil {
		return "", fmt.Errorf("item %s: %w", item, err)
	}
	if inv.Reserved <= 0 {
		return "", fmt.Errorf("item %s has no reserved stock to release", item)
	}

	inv.Reserved--
	inv.Available++
	inv.UpdatedAt = time.Now().UTC()
	if err := a.store.PutInventory(ctx, item, inv); err != nil {
		return "", fmt.Errorf("update inventory for %s: %w", item, err)
	}

	order.Status = store.OrderCancelled
	order.ShippingStatus = store.ShippingCancelled
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "inventory reservation compensated", "order_id", orderID, "item", item)
	return fmt.Sprintf("Compensated inventory reservation for order %s.", orderID), nil
}

// RefundPayment reverses a captured payment by marking it refunded.
func (a *Activities) RefundPayment(ctx context.Context, orderID string) (string, error) {
	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.PaymentStatus == store.PaymentRefunded {
		return fmt.Sprintf("Payment for order %s already refunded.", orderID), nil
	}
	if order.PaymentStatus != store.PaymentPaid {
		return "", notInProperState(orderID)
	}

	order.PaymentStatus = store.PaymentRefunded
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "payment refunded", "order_id", orderID)
	return fmt.Sprintf("Reversed payment for order %s.", orderID), nil
}

// CancelShipping undoes a completed shipment: the shipped unit returns to
// available stock and the order is cancelled.
func (a *Activities) CancelShipping(ctx context.Context, orderID, item string) (string, error) {
	unlock := a.locks.Lock(inventoryLockKey(item))
	defer unlock()

	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.ShippingStatus == store.ShippingCancelled {
		return fmt.Sprintf("Shipping for order %s already cancelled.", orderID), nil
	}
	if order.ShippingStatus != store.ShippingShipped {
		return "", notInProperState(orderID)
	}

	inv, err := a.store.GetInventory(ctx, item)
	if err != nil {
		return "", fmt.Errorf("item %s: %w", item, err)
	}

	inv.Available++
	inv.UpdatedAt = time.Now().UTC()
	if err := a.store.PutInventory(ctx, item, inv); err != nil {
		return "", fmt.Errorf("update inventory for %s: %w", item, err)
	}

	order.ShippingStatus = store.ShippingCancelled
	order.Status = store.OrderCancelled
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "shipping compensated", "order_id", orderID, "item", item)
	return fmt.Sprintf("Cancelled shipping for order %s.", orderID), nil
}

// CloseFailedOrder marks an order that failed midway as a processing
// failure. It runs last in any rollback, after the step-specific
// compensators.
func (a *Activities) CloseFailedOrder(ctx context.Context, orderID string) (string, error) {
	order, err := a.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", orderID, err)
	}
	if order.Status == store.OrderProcessingFailure {
		return fmt.Sprintf("Order %s already closed.", orderID), nil
	}

	order.Status = store.OrderProcessingFailure
	if err := a.store.PutOrder(ctx, orderID, order); err != nil {
		return "", fmt.Errorf("update order %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "failed order closed", "order_id", orderID)
	return fmt.Sprintf("Closed order %s.", orderID), nil
}

func inventoryLockKey(item string) string {
	return "inventory:" + item
}
