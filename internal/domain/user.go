package domain

import "strings"

type UserID int64

type Role string

const (
	RoleDealer  Role = "dealer"
	RoleManager Role = "manager"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleDealer:
		return RoleDealer, true
	case RoleManager:
		return RoleManager, true
	default:
		return "", false
	}
}

type User struct {
	ID          UserID
	Username    string
	Name        string
	Image       *string
	Role        Role
	IsActive    bool
	DeviceToken *string
}

func (u *User) IsDealer() bool  { return u != nil && u.Role == RoleDealer }
func (u *User) IsManager() bool { return u != nil && u.Role == RoleManager }

// Room — персональный канал пользователя.
func (u *User) Room() string {
	if u == nil {
		return ""
	}
	return NormalizeRoom(u.Username)
}

// NormalizeRoom приводит username к имени канала: нижний регистр,
// [a-z0-9.-] как есть, каждый остальной байт UTF-8 (включая '_')
// кодируется как "_xx". Разные username (без учёта регистра) дают разные комнаты.
func NormalizeRoom(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(username))
	for i := 0; i < len(username); i++ {
		c := username[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

const hexDigits = "0123456789abcdef"
