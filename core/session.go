package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"universe-gateway/models"
)

const (
	FrameFeed     = "feed"
	FrameCoCreate = "cocreate"
	FrameError    = "error"
	FrameBusy     = "busy"

	sessionReadLimit = 64 * 1024
	writeWait        = 10 * time.Second
)

// SessionHandler WebSocket 会话：每个连接同一时间最多一个生成请求在途
type SessionHandler struct {
	gateway  ContentGateway
	upgrader websocket.Upgrader
	metrics  *Metrics // 可为 nil
	logger   *logrus.Logger
}

func NewSessionHandler(gateway ContentGateway, metrics *Metrics, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		gateway: gateway,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	busy    atomic.Bool
	wg      sync.WaitGroup
	logger  *logrus.Entry
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(sessionReadLimit)

	sessionID := uuid.NewString()
	s := &session{
		conn:   conn,
		logger: h.logger.WithField("session_id", sessionID),
	}
	s.logger.Info("Universe session opened")
	if h.metrics != nil {
		h.metrics.SessionsTotal.Inc()
	}

	// 连接断开不取消在途请求，结果直接丢弃
	baseCtx := WithRequestID(context.WithoutCancel(r.Context()), sessionID)

	for {
		var frame models.SessionFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).Warn("Universe session read failed")
			}
			break
		}
		h.dispatch(baseCtx, s, frame)
	}

	s.wg.Wait()
	s.logger.Info("Universe session closed")
}

func (h *SessionHandler) dispatch(ctx context.Context, s *session, frame models.SessionFrame) {
	switch frame.Type {
	case FrameFeed:
	case FrameCoCreate:
		if strings.TrimSpace(frame.Prompt) == "" {
			s.write(models.SessionFrame{Type: FrameError, Message: "prompt must not be empty"})
			return
		}
		if utf8.RuneCountInString(frame.Prompt) > models.MaxPromptLength {
			s.write(models.SessionFrame{Type: FrameError, Message: fmt.Sprintf("prompt exceeds %d characters", models.MaxPromptLength)})
			return
		}
	default:
		s.write(models.SessionFrame{Type: FrameError, Message: "unknown frame type: " + frame.Type})
		return
	}

	if !s.busy.CompareAndSwap(false, true) {
		s.write(models.SessionFrame{Type: FrameBusy, Message: "a generation is already in progress"})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var reply models.SessionFrame
		if frame.Type == FrameFeed {
			reply = models.SessionFrame{Type: FrameFeed, Nodes: h.gateway.GetFeed(ctx, frame.Interests)}
		} else {
			content := h.gateway.CoCreate(ctx, frame.Prompt)
			reply = models.SessionFrame{Type: FrameCoCreate, Content: &content}
		}
		// 先释放再回写，客户端收到结果后可以立即发起下一次请求
		s.busy.Store(false)
		s.write(reply)
	}()
}

// write gorilla/websocket 只允许一个并发写者
func (s *session) write(frame models.SessionFrame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.WithError(err).Debug("Dropping session reply, connection gone")
	}
}
