package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harry166/stro/internal/domain/models"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	h := NewHub(nil, 10)
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubDeliversToOwner(t *testing.T) {
	h, base := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/alerts?user_id=7", nil)
	require.NoError(t, err)
	defer conn.Close()
	other, _, err := websocket.DefaultDialer.Dial(base+"/ws/alerts?user_id=8", nil)
	require.NoError(t, err)
	defer other.Close()

	require.Eventually(t, func() bool { return h.Connections(7) == 1 && h.Connections(8) == 1 },
		time.Second, 5*time.Millisecond)

	ev := &models.AlertEvent{ID: "e1", UserID: 7, Symbol: "NVDA", Type: models.AlertHighGain, PriceChange: 30}
	require.NoError(t, h.PublishAlert(context.Background(), ev))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var got models.AlertEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, models.AlertHighGain, got.Type)

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHubRejectsBadUser(t *testing.T) {
	_, base := startHub(t)
	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/alerts?user_id=abc", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubUnregistersOnClose(t *testing.T) {
	h, base := startHub(t)
	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/alerts?user_id=3", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.Connections(3) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Connections(3) == 0 }, 2*time.Second, 10*time.Millisecond)
}
