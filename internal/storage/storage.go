// Package storage хранит вложения сообщений. Ключ относительный
// ("chat/<id>/<uuid>.<ext>"), в базе лежит только он.
package storage

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Storage interface {
	// Put сохраняет содержимое под ключом; size = -1, если размер неизвестен.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// AttachmentKey строит ключ для нового вложения чата, сохраняя расширение.
func AttachmentKey(chatID int64, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	if len(ext) > 10 || strings.ContainsAny(ext, " /?#") {
		ext = ""
	}
	return path.Join("chat", strconv.FormatInt(chatID, 10), uuid.NewString()+ext)
}
