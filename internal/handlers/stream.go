package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	transportSSE       = "sse"
	transportWebSocket = "websocket"

	wsWriteWait = 10 * time.Second
)

// errKeepalive reports that no event arrived within the keepalive interval.
var errKeepalive = errors.New("keepalive")

// Status streams are public and carry no credentials, so any origin may
// connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// nextEvent waits for the next status event, giving up with errKeepalive
// after the keepalive interval so the caller can ping the client.
func (h *PairingHandler) nextEvent(
	ctx context.Context,
	sub *broker.Subscription,
) (models.StatusEvent, error) {
	if h.keepalive <= 0 {
		return sub.Next(ctx)
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.keepalive)
	defer cancel()

	ev, err := sub.Next(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ev, errKeepalive
	}
	return ev, err
}

// StreamSSE handles GET /api/v1/pairing/status/:code/stream
func (h *PairingHandler) StreamSSE(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := h.pairingService.Subscribe(ctx, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()

	h.metrics.RecordStatusStreamOpened(transportSSE)
	defer h.metrics.RecordStatusStreamClosed(transportSSE)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		ev, err := h.nextEvent(ctx, sub)
		if errors.Is(err, errKeepalive) {
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
			continue
		}
		if err != nil {
			// io.EOF after the final event, or the client went away.
			return
		}

		c.SSEvent(string(ev.Type), ev)
		c.Writer.Flush()
	}
}

// StreamWebSocket handles GET /api/v1/pairing/status/:code/ws
func (h *PairingHandler) StreamWebSocket(c *gin.Context) {
	sub, err := h.pairingService.Subscribe(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().
			Err(err).
			Str("remote_addr", c.Request.RemoteAddr).
			Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	h.metrics.RecordStatusStreamOpened(transportWebSocket)
	defer h.metrics.RecordStatusStreamClosed(transportWebSocket)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends data; reading only detects disconnects and
	// processes control frames.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		ev, err := h.nextEvent(ctx, sub)
		if errors.Is(err, errKeepalive) {
			if err := conn.WriteControl(
				websocket.PingMessage, nil, time.Now().Add(wsWriteWait),
			); err != nil {
				return
			}
			continue
		}
		if err != nil {
			break
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Str("code", sub.Code()).Msg("websocket write failed")
			return
		}
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"),
		time.Now().Add(wsWriteWait),
	)
}
