package pubsub

import "strings"

const channelPrefix = "chat:room:"

// RoomChannel — канал общего брокера для комнаты.
func RoomChannel(room string) string {
	return channelPrefix + room
}

// RoomFromChannel — обратное RoomChannel преобразование.
func RoomFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, channelPrefix), true
}
