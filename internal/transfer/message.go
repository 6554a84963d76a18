// Package transfer 在编辑端与预览端之间传递简历记录：消息信封、会话级临时存储，
// 以及在两端之间转发消息的 Hub。投递是尽力而为的，没有确认与重试。
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"phResumeRender/internal/resume"
)

// MessageType 消息类型，字段值与前端约定一致。
type MessageType string

const (
	TypeResumeData MessageType = "resumeData"
	TypeReady      MessageType = "ready"
)

// Message 跨窗口消息信封。
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Role 连接在会话中的角色：receiver 为预览窗口，opener 为发送数据的编辑窗口。
type Role string

const (
	RoleReceiver Role = "receiver"
	RoleOpener   Role = "opener"
)

var (
	ErrInvalidSession    = errors.New("invalid session id")
	ErrInvalidRole       = errors.New("invalid channel role")
	ErrMalformedMessage  = errors.New("malformed channel message")
	ErrUnexpectedMessage = errors.New("unexpected message for role")
	ErrNotFound          = errors.New("resume data not found")
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateSession 校验会话标识。
func ValidateSession(session string) error {
	if !sessionPattern.MatchString(session) {
		return fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	return nil
}

// ParseRole 解析角色，空值视为 receiver。
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleReceiver:
		return RoleReceiver, nil
	case RoleOpener:
		return RoleOpener, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// NewResumeData 构造 resumeData 消息。
func NewResumeData(rec *resume.Record) (Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return Message{}, fmt.Errorf("marshal resume: %w", err)
	}
	return Message{Type: TypeResumeData, Data: data}, nil
}

// DecodeMessage 解析消息信封。
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, errors.Join(ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return msg, nil
}

// Record 解析 resumeData 消息携带的简历记录。
func (m Message) Record() (*resume.Record, error) {
	if m.Type != TypeResumeData || len(m.Data) == 0 {
		return nil, fmt.Errorf("%w: no resume data", ErrMalformedMessage)
	}
	var rec resume.Record
	if err := json.Unmarshal(m.Data, &rec); err != nil {
		return nil, errors.Join(ErrMalformedMessage, err)
	}
	return &rec, nil
}
