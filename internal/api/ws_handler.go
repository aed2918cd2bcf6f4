package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"craftcv/internal/auth"
	"craftcv/internal/notify"
)

// 客户端建连后必须在该窗口内完成 auth 握手。
const wsAuthDeadline = 10 * time.Second

const wsPingInterval = 30 * time.Second

// wsEnvelope 是推送给前端的统一消息信封。Type 标识载荷种类，
// 前端按 Type 分发，Data 是对应的结构化载荷。
type wsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const wsTypeExportStatus = "export_status"

// WsHandler 维护导出通知的 WebSocket 推送：客户端先发 auth 消息，
// 之后服务端把该用户 Redis 频道上的导出状态以 wsEnvelope 转发过去。
type WsHandler struct {
	redisClient    *redis.Client
	authService    *auth.AuthService
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient *redis.Client, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		authService:    authService,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.originAllowed}
	return h
}

// originAllowed：配置了白名单时精确匹配；否则退回同源校验。
func (h *WsHandler) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接，完成 auth 握手后进入推送循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userID, err := h.awaitAuth(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))
	log.Info("websocket authenticated")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 读循环只用来感知客户端断开；握手后的入站消息一律忽略。
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.pushLoop(ctx, conn, userID, log); err != nil {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

// awaitAuth 读取首条消息并校验访问令牌，返回用户 ID。
func (h *WsHandler) awaitAuth(conn *websocket.Conn) (uint, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthDeadline))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		wsClose(conn, websocket.ClosePolicyViolation, "auth required")
		return 0, fmt.Errorf("read auth message: %w", err)
	}

	var msg wsAuthMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		wsClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		wsClose(conn, websocket.ClosePolicyViolation, "auth required")
		return 0, fmt.Errorf("first message must be auth")
	}

	claims, err := h.authService.ValidateToken(msg.Token)
	if err != nil {
		wsClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return 0, fmt.Errorf("validate token: %w", err)
	}
	if claims.TokenType != "access" {
		wsClose(conn, websocket.ClosePolicyViolation, "access token required")
		return 0, fmt.Errorf("invalid token type: %s", claims.TokenType)
	}
	if claims.MustChangePassword {
		wsClose(conn, websocket.ClosePolicyViolation, "password change required")
		return 0, fmt.Errorf("password change required")
	}
	return claims.UserID, nil
}

// pushLoop 订阅用户通知频道并把导出状态转发给客户端。
func (h *WsHandler) pushLoop(ctx context.Context, conn *websocket.Conn, userID uint, log *slog.Logger) error {
	channel := notify.Channel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to notify channel", slog.String("channel", channel))

	messages := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("pubsub channel closed")
			}
			frame, err := encodeExportEnvelope([]byte(msg.Payload))
			if err != nil {
				// 协议外的载荷不透传，丢弃并告警。
				log.Warn("dropping malformed notify payload", slog.Any("error", err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

// encodeExportEnvelope 把 Redis 频道上的原始载荷解码为导出状态，
// 再包进统一信封。解码失败返回错误，调用方负责丢弃。
func encodeExportEnvelope(payload []byte) ([]byte, error) {
	var status notify.ExportStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("decode export status: %w", err)
	}
	if status.Status == "" {
		return nil, fmt.Errorf("export status missing status field")
	}
	return json.Marshal(wsEnvelope{Type: wsTypeExportStatus, Data: status})
}

func wsClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
