package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	logpkg "github.com/benvon/sculptor/internal/logger"
	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/services/ai"
	"github.com/benvon/sculptor/internal/services/career"
	"github.com/benvon/sculptor/internal/workspace"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// MaxMessageTextLength bounds one user message
	MaxMessageTextLength = 20000
	// DefaultAudioMIMEType is assumed when a client omits the audio type
	DefaultAudioMIMEType = "audio/webm"
	// DefaultTurnTimeout bounds one streamed turn. Turns outlive their request.
	DefaultTurnTimeout = 5 * time.Minute

	streamReadLimit    = 12 << 20
	streamPongWait     = 60 * time.Second
	streamPingPeriod   = 54 * time.Second
	streamWriteWait    = 10 * time.Second
	streamFrameBacklog = 256
)

// ChatHandler runs chat turns over JSON and WebSocket
type ChatHandler struct {
	workspaces  Workspaces
	chat        *career.ChatEngine
	upgrader    websocket.Upgrader
	turnTimeout time.Duration
	logger      *zap.Logger
}

// NewChatHandler creates a new chat handler. allowedOrigins guards the WebSocket handshake;
// requests without an Origin header (non-browser clients) are accepted.
func NewChatHandler(workspaces Workspaces, chat *career.ChatEngine, allowedOrigins []string, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		workspaces:  workspaces,
		chat:        chat,
		turnTimeout: DefaultTurnTimeout,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// RegisterRoutes registers chat routes
// The router should already have the /sessions prefix
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/messages", h.SendMessage).Methods("POST")
	r.HandleFunc("/{id}/stream", h.Stream).Methods("GET")
}

// RegisterEventRoutes registers the change feed. It lives outside /sessions so
// it cannot collide with the /sessions/{id} routes.
func (h *ChatHandler) RegisterEventRoutes(r *mux.Router) {
	r.HandleFunc("/events", h.Events).Methods("GET")
}

// MessageRequest is one user turn. Audio is base64 encoded.
type MessageRequest struct {
	Text          string `json:"text" validate:"max=20000"`
	AudioBase64   string `json:"audio_base64,omitempty"`
	AudioMIMEType string `json:"audio_mime_type,omitempty"`
}

// TurnResponse reports the messages a turn appended
type TurnResponse struct {
	UserMessage      models.Message `json:"user_message"`
	AssistantMessage models.Message `json:"assistant_message"`
	Fragments        int            `json:"fragments"`
}

func (req MessageRequest) turnInput() (career.TurnInput, error) {
	in := career.TurnInput{Text: req.Text}
	if req.AudioBase64 == "" {
		return in, nil
	}
	data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		return in, errors.New("audio_base64 is not valid base64")
	}
	mime := req.AudioMIMEType
	if mime == "" {
		mime = DefaultAudioMIMEType
	}
	in.Audio = &ai.Audio{MIMEType: mime, Data: data}
	return in, nil
}

// SendMessage runs one turn and returns once the reply is complete
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ws, sess, ok := sessionFromRequest(w, r, h.workspaces)
	if !ok {
		return
	}

	var req MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.turnInput()
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx, cancel := h.turnContext(callContext(r))
	defer cancel()
	result, err := h.chat.Send(ctx, ws.Sessions, ws.Profile.Get(), sess.ID, in)
	if err != nil {
		// A failed turn has already written the error reply into the transcript
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, TurnResponse{
		UserMessage:      result.UserMessage,
		AssistantMessage: result.AssistantMessage,
		Fragments:        result.Fragments,
	})
}

// turnContext detaches the turn from the request so a disconnecting client does
// not abort the provider call; the reply still lands in the session.
func (h *ChatHandler) turnContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), h.turnTimeout)
}

// Stream frame types
const (
	FrameMessage  = "message"
	FrameStarted  = "turn_started"
	FrameFragment = "fragment"
	FrameDone     = "done"
	FrameError    = "error"
	FrameEvent    = "session_event"
)

// StreamFrame is a server to client WebSocket frame
type StreamFrame struct {
	Type      string          `json:"type"`
	SessionID uuid.UUID       `json:"session_id"`
	Content   string          `json:"content,omitempty"`
	Message   *models.Message `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Event     string          `json:"event,omitempty"`
}

// ClientFrame is a client to server WebSocket frame
type ClientFrame struct {
	Type string `json:"type"`
	MessageRequest
}

// streamConn serializes writes to one websocket; gorilla connections allow a single writer
type streamConn struct {
	conn   *websocket.Conn
	out    chan StreamFrame
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func newStreamConn(conn *websocket.Conn, logger *zap.Logger) *streamConn {
	return &streamConn{
		conn:   conn,
		out:    make(chan StreamFrame, streamFrameBacklog),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// send queues a frame; after the connection closes frames are dropped
func (c *streamConn) send(f StreamFrame) {
	select {
	case c.out <- f:
	case <-c.done:
	}
}

func (c *streamConn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *streamConn) writeLoop() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteJSON(f); err != nil {
				c.logger.Debug("stream_write_failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *streamConn) readLoop(handle func(ClientFrame)) {
	defer c.close()

	c.conn.SetReadLimit(streamReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var frame ClientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug("stream_read_failed", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
		handle(frame)
	}
}

// Stream upgrades to a WebSocket bound to one session. Each client "message"
// frame starts a turn whose fragments are pushed in arrival order.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, sess, ok := sessionFromRequest(w, r, h.workspaces)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake error
		h.logger.Debug("stream_upgrade_failed", zap.Error(err))
		return
	}

	sc := newStreamConn(conn, h.logger)
	go sc.writeLoop()

	parent := context.WithoutCancel(callContext(r))
	sc.readLoop(func(frame ClientFrame) {
		if frame.Type != FrameMessage {
			sc.send(StreamFrame{Type: FrameError, SessionID: sess.ID, Error: "unknown frame type"})
			return
		}
		if len(frame.Text) > MaxMessageTextLength {
			sc.send(StreamFrame{Type: FrameError, SessionID: sess.ID, Error: "message is too long"})
			return
		}
		in, err := frame.turnInput()
		if err != nil {
			sc.send(StreamFrame{Type: FrameError, SessionID: sess.ID, Error: err.Error()})
			return
		}
		go h.streamTurn(parent, sc, ws, sess.ID, in)
	})
}

func (h *ChatHandler) streamTurn(parent context.Context, sc *streamConn, ws *workspace.Workspace, id uuid.UUID, in career.TurnInput) {
	ctx, cancel := h.turnContext(parent)
	defer cancel()

	sc.send(StreamFrame{Type: FrameStarted, SessionID: id})
	in.OnFragment = func(fragment string) {
		sc.send(StreamFrame{Type: FrameFragment, SessionID: id, Content: fragment})
	}

	result, err := h.chat.Send(ctx, ws.Sessions, ws.Profile.Get(), id, in)
	if err != nil {
		frame := StreamFrame{Type: FrameError, SessionID: id, Error: engineErrorMessage(err)}
		if errors.Is(err, career.ErrTurnFailed) {
			frame.Message = &result.AssistantMessage
		}
		h.logger.Debug("stream_turn_failed",
			zap.String("session_id", id.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		sc.send(frame)
		return
	}
	sc.send(StreamFrame{Type: FrameDone, SessionID: id, Message: &result.AssistantMessage})
}

// Events upgrades to a WebSocket that pushes session store change notifications.
// Clients re-read the affected session over REST.
func (h *ChatHandler) Events(w http.ResponseWriter, r *http.Request) {
	ws, ok := userWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}

	// Subscribe before the handshake completes so no change is missed
	events, unsubscribe := ws.Sessions.Subscribe()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		h.logger.Debug("events_upgrade_failed", zap.Error(err))
		return
	}

	sc := newStreamConn(conn, h.logger)
	go sc.writeLoop()

	go func() {
		defer unsubscribe()
		for {
			select {
			case ev, open := <-events:
				if !open {
					sc.close()
					return
				}
				sc.send(StreamFrame{Type: FrameEvent, SessionID: ev.SessionID, Event: string(ev.Kind)})
			case <-sc.done:
				return
			}
		}
	}()

	// Inbound frames are ignored; reading keeps pongs and close frames flowing.
	sc.readLoop(func(ClientFrame) {})
}
