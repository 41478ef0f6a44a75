package ws

import (
	"context"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/service"
)

// Handler выполняет команду. Возвращённое событие уходит только вызвавшему;
// рассылка по комнатам делается внутри сервиса.
type Handler func(ctx context.Context, s *Session, req Request) (*domain.Event, error)

// RoleCommandSet — таблица команд роли.
type RoleCommandSet map[string]Handler

type ChatAPI interface {
	DealerChats(ctx context.Context, caller *domain.User) ([]domain.ChatSummary, error)
	ManagerChats(ctx context.Context, caller *domain.User, q domain.PageQuery) ([]domain.ChatSummary, error)
	ChatMessages(ctx context.Context, caller *domain.User, chatID domain.ChatID, q domain.PageQuery) ([]domain.MessageView, error)
	SendMessage(ctx context.Context, caller *domain.User, chatID domain.ChatID, text *string, files []string) (*domain.MessageView, error)
	ReadMessage(ctx context.Context, caller *domain.User, msgID domain.MessageID, guards ...service.ReadGuard) (*domain.MessageView, error)
}

// baseCommands — общие для обеих ролей команды; chats у каждой роли своя.
func baseCommands(api ChatAPI) RoleCommandSet {
	c := commands{api: api}
	return RoleCommandSet{
		CmdChatMessages: c.chatMessages,
		CmdSendMessage:  c.sendMessage,
		CmdReadMessage:  c.readMessage(),
	}
}

// DealerCommands: chats — единственный чат дилера.
func DealerCommands(api ChatAPI) RoleCommandSet {
	c := commands{api: api}
	set := baseCommands(api)
	set[CmdChats] = c.dealerChats
	return set
}

// ManagerCommands: chats — список по городу, read_message только для сообщений дилера.
func ManagerCommands(api ChatAPI) RoleCommandSet {
	c := commands{api: api}
	set := baseCommands(api)
	set[CmdChats] = c.managerChats
	set[CmdReadMessage] = c.readMessage(service.DealerAuthored)
	return set
}

// DefaultRoles — таблицы команд и проверки подключения по ролям.
func DefaultRoles(api ChatAPI) map[domain.Role]Role {
	return map[domain.Role]Role{
		domain.RoleDealer: {
			Commands:   DealerCommands(api),
			Validators: []Validator{IsActive, IsDealer},
		},
		domain.RoleManager: {
			Commands:   ManagerCommands(api),
			Validators: []Validator{IsActive, IsManager},
		},
	}
}

type Role struct {
	Commands   RoleCommandSet
	Validators []Validator
}
