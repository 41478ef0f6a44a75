// Package memstore — хранилище в памяти с той же семантикой, что и postgres:
// для тестов шлюза и сервиса без базы.
package memstore

import (
	"sync"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

type MediaResolver interface {
	URL(key string) string
}

type Store struct {
	mu sync.RWMutex

	users       map[domain.UserID]*domain.User
	profiles    map[domain.UserID]*domain.DealerProfile // dealer user id -> profile
	assignments map[int64][]domain.UserID               // dealer profile id -> managers in assignment order
	managerCity map[domain.UserID]int64
	chats       map[domain.ChatID]*domain.Chat
	messages    []*domain.Message // по возрастанию id
	attachments map[domain.MessageID][]domain.Attachment

	nextUser, nextProfile, nextChat, nextMessage, nextAttachment int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:       make(map[domain.UserID]*domain.User),
		profiles:    make(map[domain.UserID]*domain.DealerProfile),
		assignments: make(map[int64][]domain.UserID),
		managerCity: make(map[domain.UserID]int64),
		chats:       make(map[domain.ChatID]*domain.Chat),
		attachments: make(map[domain.MessageID][]domain.Attachment),
		now:         time.Now,
	}
}

// SetClock подменяет время создания сообщений.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// AddUser заводит пользователя; нулевой ID назначается автоматически.
func (s *Store) AddUser(u domain.User) domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == 0 {
		s.nextUser++
		u.ID = domain.UserID(s.nextUser)
	} else if int64(u.ID) > s.nextUser {
		s.nextUser = int64(u.ID)
	}
	s.users[u.ID] = &u
	return u.ID
}

// AddDealerProfile создаёт профиль дилера в городе и возвращает его id.
func (s *Store) AddDealerProfile(dealerID domain.UserID, cityID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProfile++
	s.profiles[dealerID] = &domain.DealerProfile{ID: s.nextProfile, UserID: dealerID, CityID: cityID}
	return s.nextProfile
}

func (s *Store) AssignManager(profileID int64, managerID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[profileID] = append(s.assignments[profileID], managerID)
}

func (s *Store) SetManagerCity(managerID domain.UserID, cityID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managerCity[managerID] = cityID
}

// Message возвращает копию сообщения по id; для проверок в тестах.
func (s *Store) Message(id domain.MessageID) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.messageLocked(id); m != nil {
		return *m, true
	}
	return domain.Message{}, false
}

// MessageCount — число сообщений в чате.
func (s *Store) MessageCount(chatID domain.ChatID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if m.ChatID == chatID {
			n++
		}
	}
	return n
}

func (s *Store) Users() *Users                            { return &Users{s: s} }
func (s *Store) Chats() *Chats                            { return &Chats{s: s} }
func (s *Store) Profiles() *Profiles                      { return &Profiles{s: s} }
func (s *Store) Messages(media MediaResolver) *Messages   { return &Messages{s: s, media: media} }
func (s *Store) ReadModel(media MediaResolver) *ReadModel { return &ReadModel{s: s, media: media} }

func (s *Store) messageLocked(id domain.MessageID) *domain.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// chatLocked собирает Chat с полями дилера, как это делает JOIN в postgres.
func (s *Store) chatLocked(c *domain.Chat) *domain.Chat {
	out := *c
	if d, ok := s.users[c.DealerID]; ok {
		out.DealerUsername = d.Username
		out.DealerDeviceToken = d.DeviceToken
	}
	if p, ok := s.profiles[c.DealerID]; ok {
		city := p.CityID
		out.DealerCityID = &city
	}
	return &out
}
