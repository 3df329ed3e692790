package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	orderKeyPrefix     = "order:"
	inventoryKeyPrefix = "inventory:"
	// inventoryIndexKey is the set of known item names, maintained alongside
	// the inventory records so ListInventory needs no SCAN.
	inventoryIndexKey = "inventory:index"
)

// RedisStore persists records as JSON strings in Redis. Each record lives
// under its own key, so a SET is atomic at single-record granularity.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis instance at addr.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Close releases the underlying client. Call it with defer in main().
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity on startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) GetOrder(ctx context.Context, id string) (OrderRecord, error) {
	var rec OrderRecord
	if err := s.get(ctx, orderKeyPrefix+id, &rec); err != nil {
		return OrderRecord{}, err
	}
	return rec, nil
}

func (s *RedisStore) PutOrder(ctx context.Context, id string, rec OrderRecord) error {
	return s.put(ctx, orderKeyPrefix+id, rec)
}

func (s *RedisStore) GetInventory(ctx context.Context, item string) (InventoryRecord, error) {
	var rec InventoryRecord
	if err := s.get(ctx, inventoryKeyPrefix+item, &rec); err != nil {
		return InventoryRecord{}, err
	}
	return rec, nil
}

func (s *RedisStore) PutInventory(ctx context.Context, item string, rec InventoryRecord) error {
	if err := s.client.SAdd(ctx, inventoryIndexKey, item).Err(); err != nil {
		return fmt.Errorf("redis: index item %q: %w", item, err)
	}
	return s.put(ctx, inventoryKeyPrefix+item, rec)
}

func (s *RedisStore) ListInventory(ctx context.Context) (map[string]InventoryRecord, error) {
	items, err := s.client.SMembers(ctx, inventoryIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list inventory index: %w", err)
	}

	out := make(map[string]InventoryRecord, len(items))
	for _, item := range items {
		rec, err := s.GetInventory(ctx, item)
		if err != nil {
			// An indexed item whose record was deleted out-of-band is
			// skipped rather than failing the whole listing.
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		out[item] = rec
	}
	return out, nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis: get %q: %w", key, err)
	}
	return decodeStrict(data, v)
}

func (s *RedisStore) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: put %q: %w", key, err)
	}
	return nil
}

// decodeStrict unmarshals a stored record and rejects unknown fields, so a
// record written by a newer or foreign schema surfaces as an error at the
// boundary instead of silently dropping data on the next write-back.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
