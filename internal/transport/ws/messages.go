package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Команды, которые принимает шлюз.
const (
	CmdChats        = "chats"
	CmdChatMessages = "chat_messages"
	CmdSendMessage  = "send_message"
	CmdReadMessage  = "read_message"
)

// protocolError — ошибка формата кадра; соединение остаётся открытым.
type protocolError struct {
	reason string
}

func (e *protocolError) Error() string { return e.reason }

var errOnlyJSON = &protocolError{reason: "support only json"}

func missingField(name string) error {
	return &protocolError{reason: name + ": this field is required"}
}

func unsupported(cmd string) error {
	return &protocolError{reason: "unsupported command: " + cmd}
}

// Request — входящий кадр: JSON-объект с полем command и аргументами команды.
type Request struct {
	Command string
	fields  map[string]json.RawMessage
}

func parseRequest(data []byte) (Request, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Request{}, errOnlyJSON
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Request{}, errOnlyJSON
	}

	req := Request{fields: fields}
	raw, ok := fields["command"]
	if !ok || isNull(raw) {
		return req, missingField("command")
	}
	if err := json.Unmarshal(raw, &req.Command); err != nil || strings.TrimSpace(req.Command) == "" {
		return req, missingField("command")
	}
	req.Command = strings.TrimSpace(req.Command)
	return req, nil
}

// ID читает обязательный идентификатор: число или строка с числом.
func (r Request) ID(name string) (int64, error) {
	v, ok, err := r.int(name)
	if err != nil {
		return 0, err
	}
	if !ok || v <= 0 {
		return 0, missingField(name)
	}
	return v, nil
}

// Int читает необязательное целое; отсутствие поля даёт 0.
func (r Request) Int(name string) (int, error) {
	v, _, err := r.int(name)
	return int(v), err
}

func (r Request) int(name string) (int64, bool, error) {
	raw, ok := r.fields[name]
	if !ok || isNull(raw) {
		return 0, false, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, false, &protocolError{reason: fmt.Sprintf("%s: must be an integer", name)}
		}
		return v, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, &protocolError{reason: fmt.Sprintf("%s: must be an integer", name)}
		}
		return v, true, nil
	}
	return 0, false, &protocolError{reason: fmt.Sprintf("%s: must be an integer", name)}
}

// String читает необязательную строку.
func (r Request) String(name string) string {
	raw, ok := r.fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Text читает обязательный непустой текст.
func (r Request) Text(name string) (string, error) {
	s := strings.TrimSpace(r.String(name))
	if s == "" {
		return "", missingField(name)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
