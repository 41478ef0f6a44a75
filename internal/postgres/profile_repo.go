package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ProfileRepository читает профили и назначения менеджеров; сами данные ведёт основная платформа.
type ProfileRepository struct {
	q querier
}

func NewProfileRepository(q querier) *ProfileRepository {
	return &ProfileRepository{q: q}
}

func (r *ProfileRepository) DealerProfile(ctx context.Context, dealerID domain.UserID) (*domain.DealerProfile, error) {
	var p domain.DealerProfile
	err := r.q.QueryRow(ctx, queryDealerProfileByUser, dealerID).Scan(&p.ID, &p.UserID, &p.CityID)
	if err != nil {
		return nil, mapPgError(err, domain.ErrProfileNotFound)
	}
	return &p, nil
}

// AssignedManagers возвращает менеджеров профиля в порядке назначения.
func (r *ProfileRepository) AssignedManagers(ctx context.Context, profileID int64) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, queryAssignedManagers, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.User, 0, 4)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ManagerCity возвращает город менеджера; nil — город не задан.
func (r *ProfileRepository) ManagerCity(ctx context.Context, managerID domain.UserID) (*int64, error) {
	var city *int64
	err := r.q.QueryRow(ctx, queryManagerCity, managerID).Scan(&city)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return city, nil
}
