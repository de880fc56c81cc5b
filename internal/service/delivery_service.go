package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

// Small internal interfaces so we can test without touching the real
// registry, Pocket API, Telegram, DB or Redis.
type sessionReader interface {
	Get(chatID int64) (domain.Session, bool)
}

type itemFetcher interface {
	FetchUnread(ctx context.Context, accessToken string) ([]domain.Item, error)
}

type messageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type deliveryRepository interface {
	RecordSent(ctx context.Context, chatID int64, item domain.Item, deliveredAt time.Time) error
	RecordFailed(ctx context.Context, chatID int64, item domain.Item, reason string, deliveredAt time.Time) error
	GetAll(ctx context.Context, chatID *int64, page, pageSize int) ([]domain.Delivery, int64, error)
	GetStats(ctx context.Context) (sent, failed int64, err error)
}

type redisClient interface {
	CacheLastDelivery(ctx context.Context, chatID int64, item domain.Item, deliveredAt time.Time) error
	GetAllCachedDeliveries(ctx context.Context) (map[int64]*domain.LastDeliveryCache, error)
}

const (
	msgEmptyReadingList = "Your reading list has no unread items right now."
	msgFetchFailed      = "Could not fetch your reading list. I will try again on the next cycle."
)

// DeliveryService picks one unread item for a chat and pushes it out,
// recording the attempt in the delivery history.
type DeliveryService struct {
	registry sessionReader
	pocket   itemFetcher
	sender   messageSender
	repo     deliveryRepository
	redis    redisClient
}

func NewDeliveryService(
	registry sessionReader,
	pocket itemFetcher,
	sender messageSender,
	repo deliveryRepository,
	redis redisClient,
) *DeliveryService {
	return &DeliveryService{
		registry: registry,
		pocket:   pocket,
		sender:   sender,
		repo:     repo,
		redis:    redis,
	}
}

// DeliverItem delivers one randomly chosen unread item to the chat.
// Called both right after authorization and on every scheduled fire.
func (s *DeliveryService) DeliverItem(ctx context.Context, chatID int64) error {
	sess, ok := s.registry.Get(chatID)
	if !ok || sess.Status != domain.StatusAuthorized {
		return fmt.Errorf("chat %d is not authorized", chatID)
	}

	items, err := s.pocket.FetchUnread(ctx, sess.AccessToken)
	if err != nil {
		logger.Errorf("Failed to fetch items for chat %d: %v", chatID, err)
		s.notify(ctx, chatID, msgFetchFailed)
		return fmt.Errorf("failed to fetch items: %w", err)
	}

	if len(items) == 0 {
		logger.Infof("Chat %d has no unread items", chatID)
		s.notify(ctx, chatID, msgEmptyReadingList)
		// Nothing to retry here; the next periodic cycle looks again.
		return nil
	}

	item := items[rand.IntN(len(items))]
	deliveredAt := time.Now()

	if err := s.sender.SendMessage(ctx, chatID, formatItem(item)); err != nil {
		logger.Errorf("Failed to deliver item %s to chat %d: %v", item.ID, chatID, err)

		if s.repo != nil {
			if recErr := s.repo.RecordFailed(ctx, chatID, item, err.Error(), deliveredAt); recErr != nil {
				logger.Errorf("Failed to record failed delivery for chat %d: %v", chatID, recErr)
			}
		}

		return fmt.Errorf("failed to deliver item: %w", err)
	}

	if s.repo != nil {
		if err := s.repo.RecordSent(ctx, chatID, item, deliveredAt); err != nil {
			logger.Errorf("Failed to record delivery for chat %d: %v", chatID, err)
		}
	}

	if s.redis != nil {
		if err := s.redis.CacheLastDelivery(ctx, chatID, item, deliveredAt); err != nil {
			logger.Warnf("Failed to cache delivery for chat %d: %v", chatID, err)
		}
	}

	logger.Infof("Delivered item %s to chat %d", item.ID, chatID)

	return nil
}

func (s *DeliveryService) GetDeliveries(
	ctx context.Context,
	chatID *int64,
	page, pageSize int,
) ([]domain.Delivery, int64, error) {
	return s.repo.GetAll(ctx, chatID, page, pageSize)
}

func (s *DeliveryService) GetStats(ctx context.Context) (sent, failed int64, err error) {
	return s.repo.GetStats(ctx)
}

func (s *DeliveryService) GetCachedDeliveries(ctx context.Context) (map[int64]*domain.LastDeliveryCache, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("redis client not configured")
	}
	return s.redis.GetAllCachedDeliveries(ctx)
}

func (s *DeliveryService) notify(ctx context.Context, chatID int64, text string) {
	if err := s.sender.SendMessage(ctx, chatID, text); err != nil {
		logger.Errorf("Failed to notify chat %d: %v", chatID, err)
	}
}

func formatItem(item domain.Item) string {
	if item.Title == "" {
		return item.URL
	}
	return item.Title + "\n" + item.URL
}
