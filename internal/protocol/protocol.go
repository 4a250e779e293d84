package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/teamforge/chatlink/internal/types"
)

// Frame types sent by the client on the chat channel.
const (
	TypeJoinChat    = "join_chat"
	TypeSendMessage = "send_message"
	TypeMarkRead    = "mark_read"
	TypePing        = "ping"
)

// Frame types received on the chat channel.
const (
	TypeConnected    = "connected"
	TypeNewMessage   = "new_message"
	TypeMessagesRead = "messages_marked_read"
	TypeError        = "error"
	TypePong         = "pong"
)

// Frame types received on the notification channel.
const (
	TypeNewNotification = "new_notification"
	TypeMarkedRead      = "marked_read"
	TypeUnreadCount     = "unread_count"
)

// Envelope is the wire shape of every frame on both channels. Type
// discriminates the payload; Data is decoded lazily by the typed
// Decode helpers below.
type Envelope struct {
	Type    string          `json:"type"`
	ChatId  int             `json:"chat_id,omitempty"`
	Content string          `json:"content,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	if env.Type == "" {
		return nil, errors.New("frame missing type field")
	}

	return &env, nil
}

func JoinChat(chatId int) *Envelope {
	return &Envelope{Type: TypeJoinChat, ChatId: chatId}
}

func SendMessage(chatId int, content string) *Envelope {
	return &Envelope{Type: TypeSendMessage, ChatId: chatId, Content: content}
}

func MarkRead(chatId int) *Envelope {
	return &Envelope{Type: TypeMarkRead, ChatId: chatId}
}

func Ping() *Envelope {
	return &Envelope{Type: TypePing}
}

type ReadReceipt struct {
	ChatId int `json:"chat_id"`
}

type ErrorInfo struct {
	Error string `json:"error"`
}

type UnreadCount struct {
	Count int `json:"count"`
}

func (e *Envelope) DecodeMessage() (types.Message, error) {
	var msg types.Message
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return types.Message{}, fmt.Errorf("decode message payload: %w", err)
	}

	if msg.Id == 0 || msg.ChatId == 0 {
		return types.Message{}, errors.New("message payload missing id or chat_id")
	}

	return msg, nil
}

func (e *Envelope) DecodeReadReceipt() (ReadReceipt, error) {
	var rr ReadReceipt
	if err := json.Unmarshal(e.Data, &rr); err != nil {
		return ReadReceipt{}, fmt.Errorf("decode read receipt payload: %w", err)
	}

	if rr.ChatId == 0 {
		return ReadReceipt{}, errors.New("read receipt missing chat_id")
	}

	return rr, nil
}

func (e *Envelope) DecodeError() (ErrorInfo, error) {
	var info ErrorInfo
	if err := json.Unmarshal(e.Data, &info); err != nil {
		return ErrorInfo{}, fmt.Errorf("decode error payload: %w", err)
	}

	if info.Error == "" {
		return ErrorInfo{}, errors.New("error payload missing error field")
	}

	return info, nil
}

func (e *Envelope) DecodeNotification() (types.Notification, error) {
	var n types.Notification
	if err := json.Unmarshal(e.Data, &n); err != nil {
		return types.Notification{}, fmt.Errorf("decode notification payload: %w", err)
	}

	if n.Id == 0 {
		return types.Notification{}, errors.New("notification payload missing id")
	}

	return n, nil
}

func (e *Envelope) DecodeUnreadCount() (UnreadCount, error) {
	var uc UnreadCount
	if err := json.Unmarshal(e.Data, &uc); err != nil {
		return UnreadCount{}, fmt.Errorf("decode unread count payload: %w", err)
	}

	if uc.Count < 0 {
		return UnreadCount{}, errors.New("unread count is negative")
	}

	return uc, nil
}
