package domain

import "time"

type MessageID int64

type Message struct {
	ID        MessageID
	ChatID    ChatID
	SenderID  UserID
	Text      *string
	IsRead    bool
	CreatedAt time.Time
}

type Attachment struct {
	ID   int64  `json:"id"`
	File string `json:"file"`
}

type Sender struct {
	ID    UserID  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// MessageView — сообщение в том виде, в каком оно уходит клиенту.
type MessageView struct {
	ID              MessageID    `json:"id"`
	ChatID          ChatID       `json:"chat_id"`
	Sender          Sender       `json:"sender"`
	Text            *string      `json:"text"`
	IsRead          bool         `json:"is_read"`
	Attachments     []Attachment `json:"attachments"`
	CreatedAt       time.Time    `json:"created_at"`
	IsDealerMessage bool         `json:"is_dealer_message"`
}

// NewMessage — входные данные для создания сообщения; Files — ключи в хранилище.
type NewMessage struct {
	ChatID   ChatID
	SenderID UserID
	Text     *string
	Files    []string
}
