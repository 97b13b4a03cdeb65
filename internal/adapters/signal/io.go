package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (cl *Client) writePump(ctx context.Context, c *wsSignalConn) {
	ticker := time.NewTicker(cl.opts.PingPeriod)
	defer ticker.Stop()
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			cl.sendJSON(c, map[string]string{"type": "ping"})
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (cl *Client) readPump(ctx context.Context, c *wsSignalConn) {
	defer func() {
		log.Debug().Str("module", "signal").Msg("readPump closing")
		cl.onDrop(c)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Str("module", "signal").Msg("readPump read error")
				}
				return
			}
			cl.handleSignal(c, data)
		}
	}
}

func (cl *Client) handleSignal(c *wsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "room_state":
		cl.handleRoomState(data)
	case "member_joined":
		cl.handleMemberJoined(data)
	case "member_left":
		cl.handleMemberLeft(data)
	case "member_state":
		cl.handleMemberState(data)
	case "answer":
		cl.handleAnswer(data)
	case "candidate":
		cl.handleCandidate(data)
	case "error":
		cl.handleError(data)
	case "pong", "left", "member_updated", "whoami":
		log.Debug().Str("module", "signal").Str("type", env.Type).Msg("ignored signal")
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (cl *Client) sendJSON(c *wsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

// send writes to the current connection, if there is one.
func (cl *Client) send(v any) {
	cl.mu.Lock()
	c := cl.conn
	cl.mu.Unlock()
	if c != nil {
		cl.sendJSON(c, v)
	}
}
