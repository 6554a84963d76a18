package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"phResumeRender/internal/metrics"
	"phResumeRender/internal/transfer"
)

const (
	pingInterval   = 30 * time.Second
	maxMessageSize = 4 << 20
)

// ChannelHandler 负责编辑端与预览端之间的传输通道（WebSocket 与 HTTP 投递）。
type ChannelHandler struct {
	hub      *transfer.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewChannelHandler 构造通道处理器。allowedOrigins 为空时只接受同源连接。
func NewChannelHandler(hub *transfer.Hub, logger *slog.Logger, allowedOrigins []string) *ChannelHandler {
	return &ChannelHandler{
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowedOrigins) == 0 {
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		}
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	}
}

// HandleConnection 升级连接并启动读写循环。
// receiver 连接后发送 ready 并接收 resumeData；opener 发送 resumeData 并接收 ready。
func (h *ChannelHandler) HandleConnection(c *gin.Context) {
	session := c.Param("session")
	if err := transfer.ValidateSession(session); err != nil {
		BadRequest(c, "invalid session")
		return
	}
	role, err := transfer.ParseRole(c.Query("role"))
	if err != nil {
		BadRequest(c, "invalid role")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()
	defer metrics.TrackConnection("channel")()
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("session", session),
		slog.String("role", string(role)),
	)

	inbox, stop, err := h.hub.Subscribe(ctx, session, role)
	if err != nil {
		writeClose(conn, websocket.CloseInternalServerErr, "subscribe failed")
		log.Error("subscribe channel failed", slog.Any("error", err))
		return
	}
	defer stop()

	errCh := make(chan error, 2)
	go h.readLoop(ctx, conn, session, role, errCh, cancel, log)
	go forwardLoop(ctx, conn, inbox, errCh, cancel, log)

	log.Info("channel connected")
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Info("channel connection closed", slog.Any("error", err))
		} else {
			log.Info("channel connection closed")
		}
	}
}

func (h *ChannelHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	session string,
	role transfer.Role,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			writeClose(conn, websocket.CloseAbnormalClosure, "read error")
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}

		msg, err := transfer.DecodeMessage(payload)
		if err == nil {
			err = h.hub.Handle(ctx, session, role, msg)
		}
		switch {
		case err == nil:
		case errors.Is(err, transfer.ErrMalformedMessage), errors.Is(err, transfer.ErrUnexpectedMessage):
			// 无法识别的消息直接忽略，连接保持
			log.Warn("ignore channel message", slog.Any("error", err))
		default:
			writeClose(conn, websocket.CloseInternalServerErr, "relay failed")
			errCh <- fmt.Errorf("handle message: %w", err)
			cancel()
			return
		}
	}
}

func forwardLoop(
	ctx context.Context,
	conn *websocket.Conn,
	inbox <-chan transfer.Message,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbox:
			if !ok {
				errCh <- fmt.Errorf("subscription closed")
				cancel()
				return
			}
			log.Debug("forwarding message to client", slog.String("type", string(msg.Type)))
			if err := conn.WriteJSON(msg); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

// PostMessage 供无法建立 WebSocket 的一端投递消息，角色由查询参数 role 指定，默认 opener。
func (h *ChannelHandler) PostMessage(c *gin.Context) {
	session := c.Param("session")
	if err := transfer.ValidateSession(session); err != nil {
		BadRequest(c, "invalid session")
		return
	}
	role := transfer.RoleOpener
	if raw := c.Query("role"); raw != "" {
		parsed, err := transfer.ParseRole(raw)
		if err != nil {
			BadRequest(c, "invalid role")
			return
		}
		role = parsed
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageSize+1))
	if err != nil {
		BadRequest(c, "failed to read body")
		return
	}
	if len(body) > maxMessageSize {
		Error(c, http.StatusRequestEntityTooLarge, "message too large")
		return
	}

	msg, err := transfer.DecodeMessage(body)
	if err != nil {
		BadRequest(c, "malformed message")
		return
	}
	if err := h.hub.Handle(c.Request.Context(), session, role, msg); err != nil {
		switch {
		case errors.Is(err, transfer.ErrMalformedMessage), errors.Is(err, transfer.ErrUnexpectedMessage):
			BadRequest(c, err.Error())
		default:
			Internal(c, "failed to relay message")
		}
		return
	}
	c.Status(http.StatusAccepted)
}

// channelURL 由对外地址推导预览端加入通道的 WebSocket 地址。
func channelURL(publicBaseURL, session string) string {
	u, err := url.Parse(publicBaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/channel/" + url.PathEscape(session) + "/ws"
	u.RawQuery = url.Values{"role": {string(transfer.RoleReceiver)}}.Encode()
	return u.String()
}
