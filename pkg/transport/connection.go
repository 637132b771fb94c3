// Package transport upgrades one HTTP connection per client to a WebSocket
// and drives it through a single read loop, translating wire JSON frames
// into calls against a *dialog.Controller and writing back whatever frames
// the controller produces. One goroutine per connection; the *session.Session
// it owns is never touched by any other goroutine.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sousline/sous/pkg/dialog"
	"github.com/sousline/sous/pkg/session"
)

// writeTimeout bounds how long a single outbound frame write may block.
// Without it, a stalled client could wedge this connection's goroutine
// indefinitely on a slow write.
const writeTimeout = 5 * time.Second

// connection owns one open WebSocket for the lifetime of handleConnection.
// Its fields are touched only from that call's goroutine.
type connection struct {
	id         string
	conn       *websocket.Conn
	ctx        context.Context
	controller *dialog.Controller
}

// handleConnection upgrades w/r to a WebSocket and blocks until it closes,
// reading inbound frames and dispatching them to the dialog controller.
func handleConnection(w http.ResponseWriter, r *http.Request, controller *dialog.Controller) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin validation is left to a reverse proxy in front of this
		// service; the wire protocol itself carries no auth secrets.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &connection{
		id:         uuid.New().String(),
		conn:       conn,
		ctx:        ctx,
		controller: controller,
	}
	defer func() {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	sess, ok := c.awaitInitContext()
	if !ok {
		return
	}
	defer c.controller.Close(context.Background(), sess)

	for {
		var frame dialog.InboundFrame
		if !c.readFrame(&frame) {
			return
		}
		c.controller.Handle(c.ctx, sess, frame, c.send)
	}
}

// awaitInitContext blocks for the connection's first frame, which must be
// init_context; any other first frame or a read error ends the connection
// before a session ever exists.
func (c *connection) awaitInitContext() (*session.Session, bool) {
	var frame dialog.InboundFrame
	if !c.readFrame(&frame) {
		return nil, false
	}
	if frame.Type != "init_context" {
		slog.Warn("connection's first frame was not init_context, closing", "connection_id", c.id, "type", frame.Type)
		return nil, false
	}

	sess, out := c.controller.InitSession(c.ctx, frame)
	c.send(out)
	return sess, true
}

// readFrame blocks for the next valid inbound frame, silently skipping any
// frame that fails to decode. Returns false once the connection is closed.
func (c *connection) readFrame(frame *dialog.InboundFrame) bool {
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			return false
		}
		if err := json.Unmarshal(data, frame); err != nil {
			slog.Warn("invalid inbound frame, ignoring", "connection_id", c.id, "error", err)
			continue
		}
		return true
	}
}

func (c *connection) send(frame dialog.OutboundFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Warn("failed to marshal outbound frame", "connection_id", c.id, "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Warn("failed to write outbound frame", "connection_id", c.id, "error", err)
	}
}
