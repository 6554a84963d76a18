package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"phResumeRender/internal/resume"
)

// Hub 在同一会话的编辑端与预览端之间转发消息。
//
// 预览端（receiver）建立连接后发送 ready，Hub 转发给编辑端（opener）；
// 编辑端随后发送 resumeData，Hub 先写入临时存储再转发给预览端。
// 对端不存在时消息被静默丢弃。
type Hub struct {
	store  Store
	broker Broker
	logger *slog.Logger
}

// NewHub 创建 Hub。
func NewHub(store Store, broker Broker, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{store: store, broker: broker, logger: logger}
}

func topic(session string, role Role) string {
	return fmt.Sprintf("resume_channel:%s:%s", session, role)
}

// Deliver 保存简历并转发给该会话的预览端。
func (h *Hub) Deliver(ctx context.Context, session string, rec *resume.Record) error {
	if err := ValidateSession(session); err != nil {
		return err
	}
	if err := h.store.Save(ctx, session, rec); err != nil {
		return err
	}
	msg, err := NewResumeData(rec)
	if err != nil {
		return err
	}
	return h.publish(ctx, session, RoleReceiver, msg)
}

// Ready 通知编辑端预览端已就绪。
func (h *Hub) Ready(ctx context.Context, session string) error {
	if err := ValidateSession(session); err != nil {
		return err
	}
	return h.publish(ctx, session, RoleOpener, Message{Type: TypeReady})
}

// Latest 读取会话中最近一次投递的简历。
func (h *Hub) Latest(ctx context.Context, session string) (*resume.Record, error) {
	if err := ValidateSession(session); err != nil {
		return nil, err
	}
	return h.store.Load(ctx, session)
}

// Handle 处理来自某一角色的消息：opener 只能发送 resumeData，receiver 只能发送 ready。
func (h *Hub) Handle(ctx context.Context, session string, from Role, msg Message) error {
	switch {
	case from == RoleOpener && msg.Type == TypeResumeData:
		rec, err := msg.Record()
		if err != nil {
			return err
		}
		return h.Deliver(ctx, session, rec)
	case from == RoleReceiver && msg.Type == TypeReady:
		return h.Ready(ctx, session)
	}
	return fmt.Errorf("%w: %s from %s", ErrUnexpectedMessage, msg.Type, from)
}

// Subscribe 订阅发给某一角色的消息。无法解析的消息被记录并跳过。
func (h *Hub) Subscribe(ctx context.Context, session string, role Role) (<-chan Message, func(), error) {
	if err := ValidateSession(session); err != nil {
		return nil, nil, err
	}
	raw, cancel, err := h.broker.Subscribe(ctx, topic(session, role))
	if err != nil {
		return nil, nil, err
	}
	out := make(chan Message, 4)
	go func() {
		defer close(out)
		for payload := range raw {
			msg, err := DecodeMessage(payload)
			if err != nil {
				h.logger.Warn("drop malformed channel message", slog.String("session", session), slog.Any("error", err))
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return out, cancel, nil
}

func (h *Hub) publish(ctx context.Context, session string, role Role, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return h.broker.Publish(ctx, topic(session, role), payload)
}
