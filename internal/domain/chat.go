package domain

import "time"

type ChatID int64

type Chat struct {
	ID                ChatID
	DealerID          UserID
	DealerUsername    string
	DealerDeviceToken *string
	DealerCityID      *int64
	CreatedAt         time.Time
}

// DealerRoom — канал дилера, всегда входит в набор получателей.
func (c *Chat) DealerRoom() string {
	return NormalizeRoom(c.DealerUsername)
}

// DealerProfile — профиль дилера: город и назначенные менеджеры.
type DealerProfile struct {
	ID     int64
	UserID UserID
	CityID int64
}

// ChatSummary — строка списка чатов.
type ChatSummary struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Image            *string      `json:"image"`
	NewMessagesCount int64        `json:"new_messages_count"`
	LastMessage      *LastMessage `json:"last_message"`
}

type LastMessage struct {
	ID          MessageID    `json:"id"`
	Sender      UserID       `json:"sender"`
	ChatID      ChatID       `json:"chat_id"`
	Text        *string      `json:"text"`
	IsRead      bool         `json:"is_read"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments"`
}
