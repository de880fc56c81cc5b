package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/mpotapov/pocket-reminder-bot/environments"
	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	lastDeliveryKeyPrefix = "last_delivery:"
	lastDeliveryTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// CacheLastDelivery stores the most recently delivered item for a chat.
func (c *Client) CacheLastDelivery(ctx context.Context, chatID int64, item domain.Item, deliveredAt time.Time) error {
	cache := domain.LastDeliveryCache{
		ItemID:      item.ID,
		ItemTitle:   item.Title,
		DeliveredAt: deliveredAt,
	}

	data, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := fmt.Sprintf("%s%d", lastDeliveryKeyPrefix, chatID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(lastDeliveryTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache delivery: %w", err)
	}

	logger.Debugf("Cached last delivery for chat %d (item %s)", chatID, item.ID)

	return nil
}

func (c *Client) GetLastDelivery(ctx context.Context, chatID int64) (*domain.LastDeliveryCache, error) {
	key := fmt.Sprintf("%s%d", lastDeliveryKeyPrefix, chatID)

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached delivery: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached delivery: %w", err)
	}

	var cache domain.LastDeliveryCache
	if err := json.Unmarshal([]byte(data), &cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &cache, nil
}

func (c *Client) GetAllCachedDeliveries(ctx context.Context) (map[int64]*domain.LastDeliveryCache, error) {
	pattern := fmt.Sprintf("%s*", lastDeliveryKeyPrefix)

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	result := make(map[int64]*domain.LastDeliveryCache)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var cache domain.LastDeliveryCache
		if err := json.Unmarshal([]byte(data), &cache); err != nil {
			continue
		}

		var chatID int64

		if _, err := fmt.Sscanf(key, lastDeliveryKeyPrefix+"%d", &chatID); err != nil {
			logger.Warnf("failed to parse chat id from redis key %q: %v", key, err)
			continue
		}

		result[chatID] = &cache
	}

	return result, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
