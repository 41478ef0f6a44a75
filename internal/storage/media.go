package storage

import "strings"

// MediaURLs строит абсолютные адреса файлов из относительных ключей.
type MediaURLs struct {
	base string
}

// NewMediaURLs: base вида "https://cdn.example.com/media/"; пустой base оставляет ключи как есть.
func NewMediaURLs(base string) MediaURLs {
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return MediaURLs{base: base}
}

func (m MediaURLs) URL(key string) string {
	if key == "" || m.base == "" || isAbsolute(key) {
		return key
	}
	return m.base + strings.TrimPrefix(key, "/")
}

func isAbsolute(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
