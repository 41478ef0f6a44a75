// Package bridge выполняет обращения к хранилищу на ограниченном пуле,
// вызывающий ждёт результат под своим контекстом.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/semaphore"
)

const DefaultWorkers = 16

// Error — отказ операции хранилища. Автоматически не повторяется.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrPanic = errors.New("persistence call panicked")

type Bridge struct {
	sem *semaphore.Weighted
}

func New(workers int) *Bridge {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Bridge{sem: semaphore.NewWeighted(int64(workers))}
}

// Call ставит fn в пул и ждёт её завершения либо отмены ctx.
// Любая ошибка fn (и паника) возвращается обёрнутой в *Error.
func Call[T any](ctx context.Context, b *Bridge, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return zero, &Error{Op: op, Err: err}
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer b.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("persistence panic", "op", op, "panic", r, "stack", string(debug.Stack()))
				done <- result{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return zero, &Error{Op: op, Err: res.err}
		}
		return res.v, nil
	case <-ctx.Done():
		return zero, &Error{Op: op, Err: ctx.Err()}
	}
}

// Do — Call для операций без результата.
func Do(ctx context.Context, b *Bridge, op string, fn func(context.Context) error) error {
	_, err := Call(ctx, b, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
