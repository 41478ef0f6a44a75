package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

// MediaResolver превращает ключ файла в хранилище в абсолютный URL.
type MediaResolver interface {
	URL(key string) string
}

// ReadModel — денормализованные выборки для списка чатов и истории.
type ReadModel struct {
	q     querier
	media MediaResolver
}

func NewReadModel(q querier, media MediaResolver) *ReadModel {
	return &ReadModel{q: q, media: media}
}

// chatRow — строка выборки вместе со служебными колонками сортировки.
type chatRow struct {
	ID               int64
	Name             string
	Image            *string
	NewMessagesCount int64
	LastMessage      *string
	TotalCount       int64
	LastMessageTime  *time.Time
}

// DealerChats возвращает единственный чат дилера (или пустой список).
func (r *ReadModel) DealerChats(ctx context.Context, dealerID domain.UserID) ([]domain.ChatSummary, error) {
	rows, err := r.q.Query(ctx, queryDealerChats, dealerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatSummary, 0, 1)
	for rows.Next() {
		var cr chatRow
		if err := rows.Scan(&cr.ID, &cr.Name, &cr.Image, &cr.NewMessagesCount, &cr.LastMessage); err != nil {
			return nil, err
		}
		s, err := r.summary(cr)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ManagerChats — список чатов дилеров города менеджера одной выборкой.
func (r *ReadModel) ManagerChats(ctx context.Context, f domain.RosterQuery) ([]domain.ChatSummary, error) {
	rows, err := r.q.Query(ctx, queryManagerChats, f.CityID, likePattern(f.Search), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatSummary, 0, f.Limit)
	for rows.Next() {
		var cr chatRow
		if err := rows.Scan(
			&cr.ID,
			&cr.Name,
			&cr.Image,
			&cr.NewMessagesCount,
			&cr.LastMessage,
			&cr.TotalCount,
			&cr.LastMessageTime,
		); err != nil {
			return nil, err
		}
		s, err := r.summary(cr)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ChatMessages — история чата, новые сверху.
func (r *ReadModel) ChatMessages(ctx context.Context, chatID domain.ChatID, search string, limit, offset int) ([]domain.MessageView, error) {
	rows, err := r.q.Query(ctx, queryChatMessages, chatID, likePattern(search), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.MessageView, 0, limit)
	for rows.Next() {
		v, err := scanMessageView(rows, r.media)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// summary отбрасывает служебные колонки, декодирует last_message и переписывает пути файлов.
func (r *ReadModel) summary(cr chatRow) (domain.ChatSummary, error) {
	s := domain.ChatSummary{
		ID:               strconv.FormatInt(cr.ID, 10),
		Name:             cr.Name,
		Image:            absoluteImage(r.media, cr.Image),
		NewMessagesCount: cr.NewMessagesCount,
	}
	if cr.LastMessage == nil {
		return s, nil
	}

	lm, err := decodeLastMessage(*cr.LastMessage, r.media)
	if err != nil {
		return s, fmt.Errorf("chat %d: %w", cr.ID, err)
	}
	s.LastMessage = lm
	return s, nil
}

func decodeLastMessage(raw string, media MediaResolver) (*domain.LastMessage, error) {
	var lm domain.LastMessage
	if err := json.Unmarshal([]byte(raw), &lm); err != nil {
		return nil, fmt.Errorf("decode last_message: %w", err)
	}
	if lm.Attachments == nil {
		lm.Attachments = []domain.Attachment{}
	}
	for i := range lm.Attachments {
		lm.Attachments[i].File = mediaURL(media, lm.Attachments[i].File)
	}
	return &lm, nil
}

func decodeAttachments(raw string, media MediaResolver) ([]domain.Attachment, error) {
	out := []domain.Attachment{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if out == nil {
		out = []domain.Attachment{}
	}
	for i := range out {
		out[i].File = mediaURL(media, out[i].File)
	}
	return out, nil
}

func mediaURL(media MediaResolver, key string) string {
	if media == nil || key == "" {
		return key
	}
	return media.URL(key)
}

func absoluteImage(media MediaResolver, image *string) *string {
	if image == nil || *image == "" {
		return nil
	}
	u := mediaURL(media, *image)
	return &u
}
