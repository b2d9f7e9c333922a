package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goevery/notifier/internal/auth"
	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketOptions struct {
	SendQueueSize int
	MaxFrameSize  int64
	AuthTimeout   time.Duration
	IdleTimeout   time.Duration
	PingInterval  time.Duration
	WriteTimeout  time.Duration
}

func DefaultWebSocketOptions() WebSocketOptions {
	return WebSocketOptions{
		SendQueueSize: 64,
		MaxFrameSize:  4096,
		AuthTimeout:   10 * time.Second,
		IdleTimeout:   60 * time.Second,
		PingInterval:  25 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// withDefaults replaces unusable values with the defaults. A ping interval
// must stay below the idle timeout or healthy sessions would time out.
func (o WebSocketOptions) withDefaults() WebSocketOptions {
	defaults := DefaultWebSocketOptions()

	if o.SendQueueSize <= 0 {
		o.SendQueueSize = defaults.SendQueueSize
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = defaults.MaxFrameSize
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = defaults.AuthTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = defaults.IdleTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaults.WriteTimeout
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.IdleTimeout {
		o.PingInterval = o.IdleTimeout * 9 / 10
	}

	return o
}

type authFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type WebSocketServer struct {
	logger        *zap.Logger
	upgrader      *websocket.Upgrader
	authenticator *auth.Authenticator
	registry      broadcaster.Registry
	router        *Router
	options       WebSocketOptions
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	authenticator *auth.Authenticator,
	registry broadcaster.Registry,
	router *Router,
	options WebSocketOptions,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		authenticator,
		registry,
		router,
		options.withDefaults(),
	}
}

// Register adds one endpoint per room. The room of a session is fixed by the
// path it connected to.
func (s *WebSocketServer) Register(router *mux.Router, rooms []string) {
	for _, room := range rooms {
		router.HandleFunc("/ws/"+room, s.serve(room)).Methods(http.MethodGet)
	}
}

func (s *WebSocketServer) serve(room string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Debug("websocket upgrade failed",
				zap.String("room", room),
				zap.Error(err))
			return
		}

		conn.SetReadLimit(s.options.MaxFrameSize)

		session := broadcaster.NewSession(room, s.options.SendQueueSize)
		logger := s.logger.With(
			zap.String("sessionId", session.Id),
			zap.String("room", room),
			zap.String("remoteAddr", r.RemoteAddr))

		session.BeginAuthentication()

		identity, err := s.authenticate(conn, token)
		if err != nil {
			logger.Info("websocket authentication failed", zap.Error(err))

			session.Close()
			s.closeWithCode(conn, websocket.ClosePolicyViolation, "authentication failed")
			return
		}

		logger = logger.With(zap.Int64("userId", identity.Id))

		if !session.Activate(*identity) {
			s.closeWithCode(conn, websocket.CloseGoingAway, "")
			return
		}

		err = s.registry.Admit(room, session)
		if err != nil {
			logger.Warn("failed to admit session", zap.Error(err))

			session.Close()
			s.closeWithCode(conn, websocket.CloseInternalServerErr, "")
			return
		}

		logger.Info("websocket session opened")

		// In-flight handlers stop once the session closes, whoever closed it.
		ctx, cancel := context.WithCancel(auth.WithIdentity(context.Background(), identity))
		defer cancel()
		session.OnClose(func(*broadcaster.Session) {
			cancel()
		})
		ctx = broadcaster.WithSession(ctx, session)

		go s.writePump(logger, conn, session)
		s.readLoop(ctx, logger, conn, session)

		logger.Info("websocket session closed",
			zap.Duration("duration", time.Since(session.CreateTime)))
	}
}

// authenticate verifies the token given on the upgrade request or, when there
// is none, the token of the first frame, which must arrive within the auth
// timeout.
func (s *WebSocketServer) authenticate(conn *websocket.Conn, token string) (*auth.Identity, error) {
	if token != "" {
		return s.authenticator.AuthenticateJWT(token)
	}

	err := conn.SetReadDeadline(time.Now().Add(s.options.AuthTimeout))
	if err != nil {
		return nil, err
	}

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	if messageType != websocket.TextMessage {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("expected auth frame"))
	}

	var frame authFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type != FrameTypeAuth {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("expected auth frame"))
	}

	return s.authenticator.AuthenticateJWT(frame.Token)
}

func (s *WebSocketServer) readLoop(ctx context.Context, logger *zap.Logger, conn *websocket.Conn, session *broadcaster.Session) {
	defer session.Close()

	extendDeadline := func() error {
		return conn.SetReadDeadline(time.Now().Add(s.options.IdleTimeout))
	}

	if err := extendDeadline(); err != nil {
		return
	}

	conn.SetPongHandler(func(string) error {
		return extendDeadline()
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		if err := extendDeadline(); err != nil {
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		s.router.Route(ctx, session, data)
	}
}

// writePump is the only writer of data frames on conn. It stops and closes the
// connection once the session is closed.
func (s *WebSocketServer) writePump(logger *zap.Logger, conn *websocket.Conn, session *broadcaster.Session) {
	ticker := time.NewTicker(s.options.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-session.Done():
			s.closeWithCode(conn, websocket.CloseGoingAway, "")
			return
		case payload := <-session.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout))

			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				session.Close()
				return
			}
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.options.WriteTimeout))
			if err != nil {
				logger.Debug("websocket ping failed", zap.Error(err))
				session.Close()
				return
			}
		}
	}
}

func (s *WebSocketServer) closeWithCode(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(s.options.WriteTimeout))
	_ = conn.Close()
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}
