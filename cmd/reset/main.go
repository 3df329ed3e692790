// Command reset seeds the inventory store with a known demo catalogue so
// that a fresh environment has stock to order against.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"orderflow/internal/pkg/telemetry"
	"orderflow/internal/store"
)

var catalogue = map[string]store.InventoryRecord{
	"Wireless Mouse": {
		SKU:       "SKU-1001",
		Price:     24.99,
		Available: 150,
		Reserved:  10,
		Location:  "WH-SEA-01",
	},
	"Mechanical Keyboard": {
		SKU:       "SKU-2002",
		Price:     89.50,
		Available: 6,
		Reserved:  5,
		Location:  "WH-SEA-01",
	},
	"USB-C Cable": {
		SKU:       "SKU-3003",
		Price:     8.99,
		Available: 500,
		Reserved:  25,
		Location:  "WH-SFO-02",
	},
}

func main() {
	telemetry.InitLogger()

	redisAddr := flag.String("redis", getEnv("REDIS_ADDR", "localhost:6379"), "redis address")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rs := store.NewRedisStore(*redisAddr)
	defer rs.Close()

	if err := rs.Ping(ctx); err != nil {
		slog.Error("redis unreachable", "addr", *redisAddr, "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	for item, rec := range catalogue {
		rec.UpdatedAt = now
		if err := rs.PutInventory(ctx, item, rec); err != nil {
			slog.Error("failed to seed item", "item", item, "error", err)
			os.Exit(1)
		}
		slog.Info("seeded inventory", "item", item, "sku", rec.SKU, "available", rec.Available, "reserved", rec.Reserved)
	}

	slog.Info("inventory reset complete", "items", len(catalogue))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
