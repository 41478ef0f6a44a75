package domain

import "encoding/json"

// Типы исходящих кадров.
const (
	EventChats        = "chats"
	EventChatMessages = "chat_messages"
	EventSendMessage  = "send_message"
	EventReadMessage  = "read_message"
	EventNewMessage   = "new_message"
	EventError        = "error"
)

// Event — исходящий кадр клиенту.
type Event struct {
	MessageType string `json:"message_type"`
	Results     any    `json:"results,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Status — обёртка результата для событий, адресованных другим участникам.
type Status struct {
	Status any `json:"status"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
