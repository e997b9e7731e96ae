package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hazelmart/catalog/internal/domain"
	apperrors "github.com/hazelmart/catalog/pkg/errors"
)

const keyPrefix = "cart:"

// saveIfVersionScript writes the cart only when the stored document's
// version matches the expected one. A missing key counts as version 0, so a
// lazily created cart goes through the same compare-and-swap path.
var saveIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
local expected = tonumber(ARGV[2])
local version = 0
if current then
	local ok, doc = pcall(cjson.decode, current)
	if ok and doc and doc['version'] then
		version = tonumber(doc['version'])
	end
end
if version ~= expected then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// CartRepository implements repository.CartRepository using Redis. Each cart
// is one JSON document keyed by user id.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by user ID from Redis.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// Save persists a cart to Redis with the configured TTL, without a version
// check.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	key := keyPrefix + cart.UserID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// SaveIfVersion persists the cart only if the stored version still equals
// expectedVersion. On success the written document carries
// expectedVersion+1. Returns false without writing when the version moved.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	key := keyPrefix + cart.UserID

	cart.Version = expectedVersion + 1
	data, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	res, err := saveIfVersionScript.Run(ctx, r.client,
		[]string{key},
		data, expectedVersion, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis cas cart: %w", err)
	}

	if res != 1 {
		cart.Version = expectedVersion
		return false, nil
	}

	return true, nil
}

// Delete removes a cart from Redis by user ID. Deleting an absent cart is
// not an error.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	key := keyPrefix + userID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
