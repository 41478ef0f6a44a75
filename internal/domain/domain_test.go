package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoom(t *testing.T) {
	cases := map[string]string{
		"Dealer01":         "dealer01",
		"  manager.kz ":    "manager.kz",
		"ivan petrov":      "ivan_20petrov",
		"ivan_petrov":      "ivan_5fpetrov",
		"user@example.com": "user_40example.com",
		"Алия":             "_d0_b0_d0_bb_d0_b8_d1_8f",
		"a-b_c":            "a-b_5fc",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRoom(in), "input %q", in)
	}
}

func TestNormalizeRoomDistinct(t *testing.T) {
	names := []string{"Иван", "Алия", "ivan petrov", "ivan_petrov", "ivan_20petrov", "ivan%20petrov", "a_b", "a b", "a__b"}
	seen := make(map[string]string, len(names))
	for _, n := range names {
		room := NormalizeRoom(n)
		if prev, ok := seen[room]; ok {
			t.Fatalf("%q and %q share room %q", prev, n, room)
		}
		seen[room] = n
	}
	assert.Equal(t, NormalizeRoom("ИВАН"), NormalizeRoom("иван"))
}

func TestPageQuery(t *testing.T) {
	tests := []struct {
		name          string
		q             PageQuery
		limit, offset int
	}{
		{"defaults", PageQuery{}, 10, 0},
		{"first page", PageQuery{Page: 1, PageSize: 10}, 10, 0},
		{"second page", PageQuery{Page: 2, PageSize: 10}, 10, 10},
		{"cap page size", PageQuery{Page: 3, PageSize: 50}, 20, 40},
		{"negative page", PageQuery{Page: -4, PageSize: 5}, 5, 0},
		{"offset one collapses", PageQuery{Page: 2, PageSize: 1}, 1, 0},
		{"offset two kept", PageQuery{Page: 3, PageSize: 1}, 1, 2},
		{"huge page clamped", PageQuery{Page: math.MaxInt, PageSize: 20}, 20, 20 * (MaxPage - 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.limit, tt.q.Limit())
			assert.Equal(t, tt.offset, tt.q.Offset())
		})
	}
}

func TestUserRoles(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.IsDealer())
	assert.Equal(t, "", nobody.Room())

	u := &User{Username: "Dealer.One", Role: RoleDealer}
	assert.True(t, u.IsDealer())
	assert.False(t, u.IsManager())
	assert.Equal(t, "dealer.one", u.Room())

	r, ok := ParseRole(" Manager ")
	assert.True(t, ok)
	assert.Equal(t, RoleManager, r)
	_, ok = ParseRole("admin")
	assert.False(t, ok)
}

func TestPermissionErrors(t *testing.T) {
	assert.ErrorIs(t, ErrDealerOnly, ErrPermissionDenied)
	assert.ErrorIs(t, ErrNotParticipant, ErrPermissionDenied)
	assert.True(t, IsNotFound(ErrMessageNotFound))
	assert.False(t, IsNotFound(ErrDealerOnly))
}
