package extract

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BloomConfig configures the cross-video hash filter held in Redis.
type BloomConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Key      string // redis key for bloom filter
	// Capacity sets the initial BF.RESERVE capacity (number of items)
	Capacity int
	// ErrorRate sets the desired false positive probability (e.g. 0.001)
	ErrorRate float64
}

// HashBloom is a minimal Redis-backed Bloom wrapper over RedisBloom commands.
// It remembers perceptual hashes across videos so repeated slides (shared
// intros, sponsor frames) can be surfaced during extraction.
type HashBloom struct {
	client *redis.Client
	key    string
}

// NewHashBloomFromEnv creates a HashBloom when REDIS_ADDR is set; otherwise
// it returns nil and the cross-video check stays disabled.
func NewHashBloomFromEnv() (*HashBloom, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	key := os.Getenv("BLOOM_KEY")
	if key == "" {
		key = "slides:hashes"
	}

	capacity := 100000
	if c := os.Getenv("BLOOM_CAPACITY"); c != "" {
		if v, err := strconv.Atoi(c); err == nil && v > 0 {
			capacity = v
		}
	}
	errorRate := 0.001
	if e := os.Getenv("BLOOM_ERROR_RATE"); e != "" {
		if v, err := strconv.ParseFloat(e, 64); err == nil && v > 0 {
			errorRate = v
		}
	}

	cfg := BloomConfig{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASS"),
		Key:       key,
		Capacity:  capacity,
		ErrorRate: errorRate,
	}
	return NewHashBloom(cfg)
}

// NewHashBloom creates a HashBloom wrapper and verifies connectivity.
func NewHashBloom(cfg BloomConfig) (*HashBloom, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	hb := &HashBloom{client: client, key: cfg.Key}

	// Reserve the filter up front when it does not exist yet. BF.ADD can
	// auto-create, so a failed reserve is not fatal.
	exists, err := client.Exists(ctx, cfg.Key).Result()
	if err == nil && exists == 0 {
		_ = client.Do(ctx, "BF.RESERVE", cfg.Key,
			fmt.Sprintf("%f", cfg.ErrorRate), cfg.Capacity).Err()
	}

	return hb, nil
}

// Close closes the underlying Redis client.
func (h *HashBloom) Close() error {
	return h.client.Close()
}

// Exists checks whether the hash is probably present in the filter.
func (h *HashBloom) Exists(hash string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := h.client.Do(ctx, "BF.EXISTS", h.key, hash).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Add inserts the hash into the filter.
func (h *HashBloom) Add(hash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.client.Do(ctx, "BF.ADD", h.key, hash).Err()
}
