package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 20

	// MaxPage ограничивает номер страницы, чтобы смещение не переполнялось.
	MaxPage = 100000
)

type PageQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Limit возвращает page_size с дефолтом и верхней границей.
func (q PageQuery) Limit() int {
	switch {
	case q.PageSize <= 0:
		return DefaultPageSize
	case q.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return q.PageSize
	}
}

// Offset: page_size*(page-1) при page > 1, иначе 0; page выше MaxPage считается MaxPage.
// Смещение ровно 1 схлопывается в 0 (совместимость со старыми клиентами).
func (q PageQuery) Offset() int {
	offset := 0
	if q.Page > 1 {
		offset = q.Limit() * (min(q.Page, MaxPage) - 1)
	}
	if offset == 1 {
		offset = 0
	}
	return offset
}

// RosterQuery — выборка списка чатов менеджера.
type RosterQuery struct {
	CityID int64
	Search string
	Limit  int
	Offset int
}
