package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrProfileNotFound = errors.New("dealer profile not found")
	ErrAlreadyExists   = errors.New("already exists")

	ErrEmptyMessage = errors.New("message must contain text or attachments")
	ErrTextTooLong  = errors.New("message text is too long")

	ErrPermissionDenied = errors.New("permission denied")
	ErrDealerOnly       = fmt.Errorf("%w: only dealer messages can be marked as read", ErrPermissionDenied)
	ErrNotParticipant   = fmt.Errorf("%w: you are not a participant of this chat", ErrPermissionDenied)
)

// IsNotFound — любая из ошибок «не найдено».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChatNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProfileNotFound)
}
