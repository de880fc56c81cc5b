package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mpotapov/pocket-reminder-bot/environments"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

// InboundMessage is one text message received from a chat.
type InboundMessage struct {
	ChatID int64
	Text   string
}

// Client talks to the Telegram Bot API: outbound sendMessage plus a
// getUpdates long-poll loop that feeds inbound messages into a channel.
type Client struct {
	httpClient  *resty.Client
	baseURL     string
	token       string
	pollTimeout time.Duration
}

func NewClient(cfg environments.TelegramConfig) *Client {
	// The long poll holds the connection open for pollTimeout, so the
	// HTTP timeout must sit above it.
	timeout := cfg.Timeout
	if cfg.PollTimeout+5*time.Second > timeout {
		timeout = cfg.PollTimeout + 5*time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:  client,
		baseURL:     cfg.APIBaseURL,
		token:       cfg.BotToken,
		pollTimeout: cfg.PollTimeout,
	}
}

type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

type getUpdatesRequest struct {
	Offset  int64 `json:"offset"`
	Timeout int64 `json:"timeout"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// SendMessage sends one text message to the chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	var result apiResponse[struct{}]

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: chatID, Text: text}).
		SetResult(&result).
		Post(c.methodURL("sendMessage"))

	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	if resp.StatusCode() != http.StatusOK || !result.OK {
		return fmt.Errorf("sendMessage failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (c *Client) getUpdates(ctx context.Context, offset int64) ([]update, error) {
	var result apiResponse[[]update]

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(getUpdatesRequest{Offset: offset, Timeout: int64(c.pollTimeout.Seconds())}).
		SetResult(&result).
		Post(c.methodURL("getUpdates"))

	if err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}

	if resp.StatusCode() != http.StatusOK || !result.OK {
		return nil, fmt.Errorf("getUpdates failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return result.Result, nil
}

// Poll long-polls getUpdates and pushes every inbound text message to
// the returned channel until the context is cancelled. The channel is
// meant for exactly one consumer goroutine.
func (c *Client) Poll(ctx context.Context) <-chan InboundMessage {
	inbound := make(chan InboundMessage)

	go func() {
		defer close(inbound)

		var offset int64

		for {
			if ctx.Err() != nil {
				return
			}

			updates, err := c.getUpdates(ctx, offset)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				logger.Errorf("Polling updates failed: %v", err)

				select {
				case <-time.After(3 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, u := range updates {
				if u.UpdateID >= offset {
					offset = u.UpdateID + 1
				}

				if u.Message == nil || u.Message.Text == "" {
					continue
				}

				select {
				case inbound <- InboundMessage{ChatID: u.Message.Chat.ID, Text: u.Message.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return inbound
}
