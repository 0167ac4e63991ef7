package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/broker"
	"github.com/go-authgate/pairgate/internal/metrics"
	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSSE(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")
	code := ts.generate(t, token, nil)

	// The code already reached completed, so the stream ends on its own.
	w := ts.do(t, http.MethodGet, "/api/v1/pairing/status/"+code+"/stream", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	connected := strings.Index(body, "event:connected")
	status := strings.Index(body, "event:status")
	require.GreaterOrEqual(t, connected, 0, body)
	require.Greater(t, status, connected, body)
	assert.Contains(t, body, `"status":"completed"`)
}

func TestStreamSSE_UnknownCode(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/api/v1/pairing/status/nope/stream", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])
}

func TestStreamWebSocket(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.register(t, "laptop-1")
	code := ts.generate(t, token, nil)

	server := httptest.NewServer(ts.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/pairing/status/" + code + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var events []models.StatusEvent
	for {
		var ev models.StatusEvent
		if err := conn.ReadJSON(&ev); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			break
		}
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, models.StatusEventConnected, events[0].Type)
	assert.Equal(t, models.StatusEventStatus, events[1].Type)
	require.NotNil(t, events[1].Status)
	assert.Equal(t, models.PairingCompleted, events[1].Status.State)
}

func TestNextEvent_Keepalive(t *testing.T) {
	h := NewPairingHandler(nil, nil, metrics.NewNoopMetrics(), 20*time.Millisecond)
	b := broker.New(util.RealClock{})
	sub := b.Subscribe("idle", time.Time{})
	defer sub.Close()

	ev, err := h.nextEvent(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEventConnected, ev.Type)

	_, err = h.nextEvent(context.Background(), sub)
	require.ErrorIs(t, err, errKeepalive)

	// The subscription survives a keepalive timeout.
	b.Publish(models.PairingStatus{Code: "idle", Attempt: 1, State: models.PairingQueued})
	ev, err = h.nextEvent(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, models.PairingQueued, ev.Status.State)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.nextEvent(ctx, sub)
	require.ErrorIs(t, err, context.Canceled)
}
