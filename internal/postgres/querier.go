package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/*
общий интерфейс *pgxpool.Pool и pgx.Tx,
чтобы репозитории работали и от пула, и внутри транзакции
*/
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

func mapPgError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return domain.ErrAlreadyExists
		case "23503": // foreign_key_violation
			if notFound != nil {
				return notFound
			}
		}
	}
	return err
}

// likePattern экранирует метасимволы LIKE, чтобы поиск был подстрокой.
func likePattern(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
