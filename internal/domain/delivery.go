package domain

import "time"

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Delivery is one recorded attempt to push an item to a chat.
type Delivery struct {
	ID          int64          `db:"id" json:"id"`
	ChatID      int64          `db:"chat_id" json:"chatId"`
	ItemID      string         `db:"item_id" json:"itemId"`
	ItemTitle   string         `db:"item_title" json:"itemTitle"`
	ItemURL     string         `db:"item_url" json:"itemUrl"`
	Status      DeliveryStatus `db:"status" json:"status"`
	FailReason  *string        `db:"fail_reason" json:"failReason,omitempty"`
	DeliveredAt time.Time      `db:"delivered_at" json:"deliveredAt"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// Item is one saved article as returned by the content API.
type Item struct {
	ID    string `json:"itemId"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// LastDeliveryCache is the per-chat cache entry for the most recently
// delivered item.
type LastDeliveryCache struct {
	ItemID      string    `json:"itemId"`
	ItemTitle   string    `json:"itemTitle"`
	DeliveredAt time.Time `json:"deliveredAt"`
}
