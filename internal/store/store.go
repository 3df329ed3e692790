// Package store defines the keyed record store the order pipeline runs
// against: order records keyed by order ID and inventory records keyed by
// item name.
//
// Writes replace whole records; a concurrent reader never observes a partial
// record. The store itself does not serialize read-modify-write cycles —
// callers that read, mutate, and write back the same key must hold the
// per-key lock (see KeyMutex).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no record.
var ErrNotFound = errors.New("record not found")

// OrderStatus is the overall lifecycle state of an order record.
// The happy path only ever advances forward through the sequence
// created → reserved → processed → shipped; compensation moves a record to
// one of the terminal undone values (cancelled, processing_failure).
type OrderStatus string

const (
	OrderCreated           OrderStatus = "created"
	OrderReserved          OrderStatus = "reserved"
	OrderProcessed         OrderStatus = "processed"
	OrderShipped           OrderStatus = "shipped"
	OrderCancelled         OrderStatus = "cancelled"
	OrderProcessingFailure OrderStatus = "processing_failure"
)

// PaymentStatus advances pending → payment_verified → paid; refunded is the
// terminal undone value written by the refund compensator.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "payment_verified"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// ShippingStatus advances pending → reserved → shipped; cancelled is the
// terminal undone value.
type ShippingStatus string

const (
	ShippingPending   ShippingStatus = "pending"
	ShippingReserved  ShippingStatus = "reserved"
	ShippingShipped   ShippingStatus = "shipped"
	ShippingCancelled ShippingStatus = "cancelled"
)

// AddressStatus advances pending → verified. It has no undone value; a
// verified address stays verified through a rollback.
type AddressStatus string

const (
	AddressPending  AddressStatus = "pending"
	AddressVerified AddressStatus = "verified"
)

// OrderRecord is one order as persisted in the store. Item is empty until
// inventory has been reserved for it.
type OrderRecord struct {
	Item           string         `json:"item,omitempty"`
	Status         OrderStatus    `json:"status"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	ShippingStatus ShippingStatus `json:"shipping_status"`
	AddressStatus  AddressStatus  `json:"address_status"`
}

// NewOrderRecord returns the record CreateOrder persists: every status field
// at the start of its sequence.
func NewOrderRecord() OrderRecord {
	return OrderRecord{
		Status:         OrderCreated,
		PaymentStatus:  PaymentPending,
		ShippingStatus: ShippingPending,
		AddressStatus:  AddressPending,
	}
}

// InventoryRecord tracks stock for one item. Available is stock not promised
// to any order; Reserved is stock promised but not yet shipped. Both stay
// non-negative, and Available+Reserved is unchanged by any correctly paired
// reserve/ship or reserve/cancel sequence.
type InventoryRecord struct {
	SKU       string    `json:"sku,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	Location  string    `json:"location,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the record store contract the step handlers depend on.
// Implementations must make each Put atomic at single-record granularity.
type Store interface {
	GetOrder(ctx context.Context, id string) (OrderRecord, error)
	PutOrder(ctx context.Context, id string, rec OrderRecord) error
	GetInventory(ctx context.Context, item string) (InventoryRecord, error)
	PutInventory(ctx context.Context, item string, rec InventoryRecord) error
	// ListInventory returns every inventory record keyed by item name.
	// Used by the gateway to populate the item selector.
	ListInventory(ctx context.Context) (map[string]InventoryRecord, error)
}
