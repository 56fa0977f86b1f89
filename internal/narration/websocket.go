package narration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 120 * time.Second
)

// Event is a JSON text frame sent between binary audio frames.
type Event struct {
	Type    string `json:"type"`
	Bytes   int64  `json:"bytes,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	EventNarrationEnd = "narration_end"
	EventError        = "error"
)

// ServeConn reads narration requests from conn one at a time and answers each
// with binary audio frames followed by a narration_end event, or a single
// error event. It returns when the peer goes away or ctx ends.
func (p *Proxy) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			if err := writeEvent(conn, Event{Type: EventError, Code: "invalid_request", Message: err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := p.narrateFrames(ctx, conn, req); err != nil {
			return err
		}
	}
}

// narrateFrames returns an error only when the connection itself is broken.
func (p *Proxy) narrateFrames(ctx context.Context, conn *websocket.Conn, req Request) error {
	body, err := p.Open(ctx, req)
	if err != nil {
		return writeEvent(conn, Event{Type: EventError, Code: ErrorCode(err), Message: err.Error()})
	}
	defer body.Close()

	buf := make([]byte, p.cfg.ChunkSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return err
			}
			written += int64(n)
		}
		if readErr == nil {
			continue
		}
		if p.metrics != nil && written > 0 {
			p.metrics.NarrationBytes.WithLabelValues(string(ModeWebsocket)).Add(float64(written))
		}
		if errors.Is(readErr, io.EOF) && written > 0 {
			return writeEvent(conn, Event{Type: EventNarrationEnd, Bytes: written})
		}
		p.logger.Warn("websocket narration failed",
			zap.String("voice_id", req.VoiceID),
			zap.Int64("bytes", written),
			zap.Error(readErr),
		)
		// Frames already sent are discarded by the client on an error event.
		return writeEvent(conn, Event{Type: EventError, Code: "narration_failed", Bytes: written, Message: "provider stream ended early"})
	}
}

func writeEvent(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(ev)
}

// ErrorCode maps proxy errors to the stable codes used in error payloads.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrUnknownVoice):
		return "unknown_voice"
	case errors.Is(err, ErrStreamInterrupted):
		return "stream_interrupted"
	default:
		return "narration_failed"
	}
}
