package ws

import "github.com/cwrk-planet/dealer-chat/internal/domain"

// Validator — проверка пользователя при подключении; Name уходит в close-кадр.
type Validator struct {
	Name  string
	Check func(u *domain.User) bool
}

var (
	IsActive  = Validator{Name: "is_active", Check: func(u *domain.User) bool { return u.IsActive }}
	IsDealer  = Validator{Name: "is_dealer", Check: (*domain.User).IsDealer}
	IsManager = Validator{Name: "is_manager", Check: (*domain.User).IsManager}
)

// firstFailed возвращает первую непройденную проверку.
func firstFailed(u *domain.User, vs []Validator) (Validator, bool) {
	for _, v := range vs {
		if !v.Check(u) {
			return v, true
		}
	}
	return Validator{}, false
}
