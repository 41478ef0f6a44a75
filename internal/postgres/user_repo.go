package postgres

import (
	"context"

	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	q querier
}

func NewUserRepository(q querier) *UserRepository {
	return &UserRepository{q: q}
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, queryUserByID, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, queryUserByUsername, username))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Image, &role, &u.IsActive, &u.DeviceToken); err != nil {
		return nil, mapPgError(err, domain.ErrUserNotFound)
	}
	u.Role = domain.Role(role)
	return &u, nil
}
