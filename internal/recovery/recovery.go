// Package recovery replays the session log into the registry and the
// scheduler at startup, before any new inbound events are processed.
package recovery

import (
	"context"
	"fmt"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/internal/scheduler"
	"github.com/mpotapov/pocket-reminder-bot/internal/session"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

type sessionLog interface {
	ReadAll() ([]domain.PersistedRecord, error)
}

type timerRegistry interface {
	Register(ctx context.Context, chatID int64, schedule domain.Schedule, onFire scheduler.FireFunc) error
}

// Recover reads every persisted record and re-creates an authorized
// session plus a recurring timer for each one. When a chat id appears
// more than once, the last appended record governs. Timers are armed
// with the normal alignment rule, so a restart after long downtime
// computes the single next future fire from the original anchor time
// of day instead of replaying missed periods.
//
// Any malformed record aborts recovery: a schedule must not be
// silently skipped or misread. Returns the number of recovered chats.
func Recover(
	ctx context.Context,
	log sessionLog,
	registry *session.Registry,
	timers timerRegistry,
	onFire scheduler.FireFunc,
) (int, error) {
	records, err := log.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to replay session log: %w", err)
	}

	// Last-write-wins by append order.
	latest := make(map[int64]domain.PersistedRecord)
	for _, record := range records {
		latest[record.ChatID] = record
	}

	for chatID, record := range latest {
		schedule := domain.Schedule{
			AnchorTime: record.AnchorTime,
			Period:     record.Period,
		}

		registry.Put(domain.Session{
			ChatID:      chatID,
			Status:      domain.StatusAuthorized,
			AccessToken: record.AccessToken,
			Schedule:    &schedule,
		})

		if err := timers.Register(ctx, chatID, schedule, onFire); err != nil {
			return 0, fmt.Errorf("failed to arm timer for chat %d: %w", chatID, err)
		}

		logger.Infof("Recovered chat %d (period %s, anchor %s)",
			chatID, record.Period, record.AnchorTime.Format("15:04:05"))
	}

	return len(latest), nil
}
