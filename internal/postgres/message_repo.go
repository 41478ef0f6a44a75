package postgres

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"github.com/jackc/pgx/v5"
)

type MessageRepository struct {
	q     querier
	media MediaResolver
}

func NewMessageRepository(q querier, media MediaResolver) *MessageRepository {
	return &MessageRepository{q: q, media: media}
}

// Create вставляет сообщение и его вложения в одной транзакции.
func (r *MessageRepository) Create(ctx context.Context, in domain.NewMessage) (*domain.Message, error) {
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	m, err := scanMessage(tx.QueryRow(ctx, queryInsertMessage, in.ChatID, in.SenderID, in.Text))
	if err != nil {
		return nil, mapPgError(err, domain.ErrChatNotFound)
	}

	if len(in.Files) > 0 {
		batch := &pgx.Batch{}
		for _, f := range in.Files {
			batch.Queue(queryInsertAttachment, m.ID, f)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("insert attachments: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	m, err := scanMessage(r.q.QueryRow(ctx, queryMessageByID, id))
	if err != nil {
		return nil, mapPgError(err, domain.ErrMessageNotFound)
	}
	return m, nil
}

// MarkRead выставляет is_read; повторный вызов ничего не ломает.
func (r *MessageRepository) MarkRead(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	m, err := scanMessage(r.q.QueryRow(ctx, queryMarkRead, id))
	if err != nil {
		return nil, mapPgError(err, domain.ErrMessageNotFound)
	}
	return m, nil
}

// View собирает сообщение в клиентском виде (отправитель, вложения с абсолютными URL).
func (r *MessageRepository) View(ctx context.Context, id domain.MessageID) (*domain.MessageView, error) {
	v, err := scanMessageView(r.q.QueryRow(ctx, queryMessageView, id), r.media)
	if err != nil {
		return nil, mapPgError(err, domain.ErrMessageNotFound)
	}
	return v, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMessageView(row pgx.Row, media MediaResolver) (*domain.MessageView, error) {
	var (
		v           domain.MessageView
		attachments string
	)
	err := row.Scan(
		&v.ID,
		&v.ChatID,
		&v.Sender.ID,
		&v.Sender.Name,
		&v.Sender.Image,
		&v.Text,
		&v.IsRead,
		&v.CreatedAt,
		&v.IsDealerMessage,
		&attachments,
	)
	if err != nil {
		return nil, err
	}

	v.Sender.Image = absoluteImage(media, v.Sender.Image)
	if v.Attachments, err = decodeAttachments(attachments, media); err != nil {
		return nil, err
	}
	return &v, nil
}
