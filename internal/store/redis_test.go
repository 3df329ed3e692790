package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr())
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStoreOrderRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.GetOrder(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := NewOrderRecord()
	rec.Item = "Widget"
	rec.Status = OrderReserved
	if err := s.PutOrder(ctx, "o1", rec); err != nil {
		t.Fatalf("put order: %v", err)
	}

	got, err := s.GetOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got != rec {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestRedisStoreInventoryRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	rec := InventoryRecord{
		SKU:       "SKU-1001",
		Price:     24.99,
		Available: 150,
		Reserved:  10,
		Location:  "WH-SEA-01",
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.PutInventory(ctx, "Wireless Mouse", rec); err != nil {
		t.Fatalf("put inventory: %v", err)
	}

	got, err := s.GetInventory(ctx, "Wireless Mouse")
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if got != rec {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestRedisStoreListInventoryUsesIndex(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	for _, item := range []string{"Widget", "Gadget"} {
		if err := s.PutInventory(ctx, item, InventoryRecord{Available: 1}); err != nil {
			t.Fatalf("put inventory %s: %v", item, err)
		}
	}

	listed, err := s.ListInventory(ctx)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d items, want 2: %+v", len(listed), listed)
	}

	// An indexed item whose record vanished out-of-band is skipped.
	mr.Del(inventoryKeyPrefix + "Gadget")
	listed, err = s.ListInventory(ctx)
	if err != nil {
		t.Fatalf("list inventory after delete: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d items after delete, want 1: %+v", len(listed), listed)
	}
	if _, ok := listed["Widget"]; !ok {
		t.Fatalf("Widget missing from listing: %+v", listed)
	}
}

func TestRedisStoreRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := mr.Set(orderKeyPrefix+"o1", `{"item":"Widget","status":"created","payment_status":"pending","shipping_status":"pending","address_status":"pending","surprise":true}`); err != nil {
		t.Fatalf("seed raw record: %v", err)
	}

	_, err := s.GetOrder(ctx, "o1")
	if err == nil || !strings.Contains(err.Error(), "decode record") {
		t.Fatalf("expected strict decode failure, got %v", err)
	}
}
