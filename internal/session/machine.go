package session

import (
	"context"
	"fmt"
	"time"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/internal/scheduler"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

// Small internal interfaces so we can test without touching the real
// Pocket API, Telegram, the log file or a live scheduler.
type authorizer interface {
	BeginHandshake(ctx context.Context) (requestCode string, err error)
	CompleteHandshake(ctx context.Context, requestCode string) (accessToken string, err error)
	AuthorizeURL(requestCode string) string
}

type messageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type sessionLog interface {
	Append(record domain.PersistedRecord) error
}

type timerRegistry interface {
	Register(ctx context.Context, chatID int64, schedule domain.Schedule, onFire scheduler.FireFunc) error
}

type deliverer interface {
	DeliverItem(ctx context.Context, chatID int64) error
}

const (
	msgWaitingForCallback = "Follow the link to connect your Pocket account, then send me any message to finish."
	msgHandshakeFailed    = "Something went wrong while contacting Pocket. Please try again."
)

// Machine drives the per-chat authorization state forward. Every
// inbound message triggers exactly one transition attempt:
//
//	absent           -> begin handshake -> pending_callback
//	pending_callback -> complete handshake -> authorized (+ schedule, log record, first delivery)
//	authorized       -> one immediate delivery, state untouched
//
// Failed external calls leave the state where it was so the next
// inbound message retries the same step.
type Machine struct {
	registry  *Registry
	auth      authorizer
	sender    messageSender
	log       sessionLog
	timers    timerRegistry
	deliverer deliverer
	period    domain.Period
}

func NewMachine(
	registry *Registry,
	auth authorizer,
	sender messageSender,
	log sessionLog,
	timers timerRegistry,
	deliverer deliverer,
	period domain.Period,
) *Machine {
	return &Machine{
		registry:  registry,
		auth:      auth,
		sender:    sender,
		log:       log,
		timers:    timers,
		deliverer: deliverer,
		period:    period,
	}
}

// Handle consumes one inbound message for the chat. The state
// read-modify-write runs inside the chat's critical section; the
// immediate-delivery side effect runs after it, so a delivery never
// holds the session lock across the item fetch.
func (m *Machine) Handle(ctx context.Context, chatID int64, text string) {
	deliverNow := false

	m.registry.Do(chatID, func() {
		sess, ok := m.registry.Get(chatID)
		switch {
		case !ok:
			m.beginHandshake(ctx, chatID)

		case sess.Status == domain.StatusPendingCallback:
			deliverNow = m.completeHandshake(ctx, chatID, sess.RequestCode)

		case sess.Status == domain.StatusAuthorized:
			deliverNow = true

		default:
			logger.Errorf("Chat %d is in unexpected state %q", chatID, sess.Status)
		}
	})

	if deliverNow {
		if err := m.deliverer.DeliverItem(ctx, chatID); err != nil {
			logger.Errorf("Immediate delivery for chat %d failed: %v", chatID, err)
		}
	}
}

// OnFire is the scheduler callback for recurring deliveries.
func (m *Machine) OnFire(ctx context.Context, chatID int64) error {
	return m.deliverer.DeliverItem(ctx, chatID)
}

func (m *Machine) beginHandshake(ctx context.Context, chatID int64) {
	code, err := m.auth.BeginHandshake(ctx)
	if err != nil {
		logger.Errorf("Handshake initiation for chat %d failed: %v", chatID, err)
		m.send(ctx, chatID, msgHandshakeFailed)
		// State stays absent; the next inbound message retries from scratch.
		return
	}

	m.registry.Put(domain.Session{
		ChatID:      chatID,
		Status:      domain.StatusPendingCallback,
		RequestCode: code,
	})

	m.send(ctx, chatID, m.auth.AuthorizeURL(code))
	m.send(ctx, chatID, msgWaitingForCallback)

	logger.Infof("Chat %d is now waiting for authorization callback", chatID)
}

func (m *Machine) completeHandshake(ctx context.Context, chatID int64, requestCode string) bool {
	token, err := m.auth.CompleteHandshake(ctx, requestCode)
	if err != nil {
		logger.Errorf("Handshake completion for chat %d failed: %v", chatID, err)
		m.send(ctx, chatID, msgHandshakeFailed)
		// Stay pending; retries are unbounded.
		return false
	}

	schedule := domain.Schedule{
		AnchorTime: time.Now(),
		Period:     m.period,
	}

	m.registry.Put(domain.Session{
		ChatID:      chatID,
		Status:      domain.StatusAuthorized,
		AccessToken: token,
		Schedule:    &schedule,
	})

	// The append is synchronous: no delivery side effect is emitted
	// before the record hits the log. A failed append is reported but
	// the in-memory transition stands; a crash inside that window
	// loses the schedule and the chat starts over on restart.
	if err := m.log.Append(domain.PersistedRecord{
		ChatID:      chatID,
		AccessToken: token,
		AnchorTime:  schedule.AnchorTime,
		Period:      schedule.Period,
	}); err != nil {
		logger.Errorf("Failed to persist session for chat %d: %v", chatID, err)
	}

	if err := m.timers.Register(ctx, chatID, schedule, m.OnFire); err != nil {
		logger.Errorf("Failed to register timer for chat %d: %v", chatID, err)
	}

	m.send(ctx, chatID, fmt.Sprintf("Authorized! You will get one saved item every %s.", schedule.Period))

	logger.Infof("Chat %d authorized with period %s", chatID, schedule.Period)

	return true
}

func (m *Machine) send(ctx context.Context, chatID int64, text string) {
	if err := m.sender.SendMessage(ctx, chatID, text); err != nil {
		logger.Errorf("Failed to send message to chat %d: %v", chatID, err)
	}
}
