package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type LocalConfig struct {
	BasePath string `yaml:"basePath"`
}

// LocalStorage — вложения на локальном диске; раздаются роутером по /media/.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("local storage %q: %w", cfg.BasePath, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("local storage %q: %w", abs, err)
	}
	return &LocalStorage{basePath: abs}, nil
}

func (s *LocalStorage) BasePath() string { return s.basePath }

// resolve переводит ключ в путь внутри basePath; выход наружу запрещён.
func (s *LocalStorage) resolve(key string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(key))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("local storage: invalid key %q", key)
	}
	return filepath.Join(s.basePath, rel), nil
}

// Put: временный файл в том же каталоге, fsync, rename. Читатель не увидит
// недописанное вложение.
func (s *LocalStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (err error) {
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	// файл раздаётся наружу, CreateTemp создаёт 0600
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("local put %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(p)
	switch {
	case err == nil:
		return fi.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("local stat %s: %w", key, err)
	}
}
