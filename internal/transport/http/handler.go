package http

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/storage"
	httpmw "github.com/cwrk-planet/dealer-chat/internal/transport/http/middleware"
	"github.com/cwrk-planet/dealer-chat/pkg/logger"
)

const (
	DefaultMaxUpload = 32 << 20
	DefaultMaxFiles  = 10
	multipartMemory  = 8 << 20
)

type MessageSender interface {
	SendMessage(ctx context.Context, caller *domain.User, chatID domain.ChatID, text *string, files []string) (*domain.MessageView, error)
}

type Handler struct {
	chats     MessageSender
	files     storage.Storage
	maxUpload int64
	maxFiles  int
}

func NewHandler(chats MessageSender, files storage.Storage, maxUpload int64, maxFiles int) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Handler{chats: chats, files: files, maxUpload: maxUpload, maxFiles: maxFiles}
}

// POST /api/v1/messages (multipart: chat_id, text, files)
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := httpmw.UserFromCtx(ctx)
	if caller == nil {
		writeError(ctx, w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	raw := strings.TrimSpace(r.FormValue("chat_id"))
	if raw == "" {
		writeError(ctx, w, http.StatusBadRequest, "chat_id: this field is required")
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, w, http.StatusBadRequest, "chat_id: must be an integer")
		return
	}

	var text *string
	if vs, ok := r.MultipartForm.Value["text"]; ok && len(vs) > 0 {
		text = &vs[0]
	}

	headers := slices.Concat(r.MultipartForm.File["files"], r.MultipartForm.File["files[]"])
	if len(headers) > h.maxFiles {
		writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("files: at most %d files allowed", h.maxFiles))
		return
	}

	keys, err := h.store(ctx, id, headers)
	if err != nil {
		logger.FromCtx(ctx).Error("http: store attachments", "chat_id", id, "err", err)
		writeError(ctx, w, http.StatusInternalServerError, "something went wrong")
		return
	}

	view, err := h.chats.SendMessage(ctx, caller, domain.ChatID(id), text, keys)
	if err != nil {
		h.discard(context.WithoutCancel(ctx), keys)
		writeServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, view)
}

// store сохраняет файлы; при ошибке уже сохранённые удаляются.
func (h *Handler) store(ctx context.Context, chatID int64, headers []*multipart.FileHeader) ([]string, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	if h.files == nil {
		return nil, errors.New("attachment storage is not configured")
	}

	keys := make([]string, 0, len(headers))
	for _, fh := range headers {
		key := storage.AttachmentKey(chatID, fh.Filename)
		if err := h.put(ctx, key, fh); err != nil {
			h.discard(context.WithoutCancel(ctx), keys)
			return nil, fmt.Errorf("put %s: %w", fh.Filename, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (h *Handler) put(ctx context.Context, key string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return h.files.Put(ctx, key, f, fh.Size, ct)
}

func (h *Handler) discard(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := h.files.Delete(ctx, k); err != nil {
			logger.FromCtx(ctx).Warn("http: orphan attachment", "key", k, "err", err)
		}
	}
}
