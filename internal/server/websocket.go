package server

import (
	"context"
	"ctchen222/tictactoe-match/internal/api/response"
	"ctchen222/tictactoe-match/internal/events"
	"ctchen222/tictactoe-match/internal/session"
	"ctchen222/tictactoe-match/internal/validator"
	"ctchen222/tictactoe-match/pkg/proto"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	heartbeatInterval = 10 * time.Second
	pongWait          = 2 * heartbeatInterval
	writeWait         = 5 * time.Second
	maxMessageSize    = 1024
)

var errMissingIndex = errors.New("move needs an index")

// handleWebSocket streams session events to the client and applies the
// commands it sends. The current view is sent first.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("session.id", c.Param("id")),
	))
	defer span.End()

	sess, err := s.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		response.Error(c, err)
		return
	}

	// Subscribed before the handshake completes so the client sees every
	// change after it connects. The subscription opens with the current view.
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "session.id", sess.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}
	defer conn.Close()

	replies := make(chan any, 4)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(ctx, conn, updates, replies, done)
	}()

	slog.InfoContext(ctx, "WebSocket connected", "session.id", sess.ID)
	readPump(ctx, conn, sess, replies, writerDone)
	close(done)
	<-writerDone
	slog.InfoContext(ctx, "WebSocket disconnected", "session.id", sess.ID)
}

// readPump applies client commands until the connection fails.
func readPump(ctx context.Context, conn *websocket.Conn, sess *session.Session, replies chan<- any, writerDone <-chan struct{}) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "WebSocket read failed", "session.id", sess.ID, "error", err)
			}
			return
		}

		if err := handleCommand(ctx, sess, msg); err != nil {
			select {
			case replies <- proto.ErrorMessage{Type: "error", Reason: err.Error()}:
			case <-writerDone:
				return
			}
		}
	}
}

// handleCommand decodes, validates and applies one client command. The new
// state reaches the client through the session subscription.
func handleCommand(ctx context.Context, sess *session.Session, msg []byte) error {
	var cmd proto.ClientCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return fmt.Errorf("%w: %w", validator.ErrInvalid, err)
	}
	if err := validator.Struct(cmd); err != nil {
		return err
	}

	var err error
	switch cmd.Type {
	case proto.CommandMove:
		if cmd.Index == nil {
			return fmt.Errorf("%w: %w", validator.ErrInvalid, errMissingIndex)
		}
		_, err = sess.RequestMove(ctx, *cmd.Index)
	case proto.CommandBotMove:
		_, err = sess.RequestAutomatedMove(ctx)
	case proto.CommandNextRound:
		_, err = sess.StartRound(ctx)
	case proto.CommandRestart:
		_, err = sess.RestartMatch(ctx)
	}
	return err
}

// writePump is the only writer of conn.
func writePump(ctx context.Context, conn *websocket.Conn, updates <-chan events.Event, replies <-chan any, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			slog.WarnContext(ctx, "WebSocket write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			return

		case event, ok := <-updates:
			if !ok {
				// Session closed or this client fell behind.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(writeWait))
				conn.Close()
				return
			}
			if !write(event) {
				conn.Close()
				return
			}

		case reply := <-replies:
			if !write(reply) {
				conn.Close()
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.WarnContext(ctx, "Failed to send ping, assuming disconnect", "error", err)
				conn.Close()
				return
			}
		}
	}
}
