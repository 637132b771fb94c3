package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousline/sous/pkg/classifier"
	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/dialog"
)

func setupTestConnection(t *testing.T) *httptest.Server {
	t.Helper()
	controller := dialog.New(nil, nil, classifier.NewDeclarationDetector(nil, ""), nil, nil, nil, config.PipelineConfig{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleConnection(w, r, controller)
	}))
	t.Cleanup(server.Close)
	return server
}

func connectTestWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readTestFrame(t *testing.T, conn *websocket.Conn) dialog.OutboundFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame dialog.OutboundFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func writeTestFrame(t *testing.T, conn *websocket.Conn, frame dialog.InboundFrame) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestHandleConnectionSendsSessionInitializedOnInitContext(t *testing.T) {
	server := setupTestConnection(t)
	conn := connectTestWS(t, server)

	writeTestFrame(t, conn, dialog.InboundFrame{
		Type: "init_context",
		MemberInfo: &dialog.MemberInfo{
			MemberID:  1,
			Allergies: []string{"새우"},
		},
	})

	frame := readTestFrame(t, conn)
	assert.Equal(t, "session_initialized", frame.Type)
	assert.NotEmpty(t, frame.SessionID)
}

func TestHandleConnectionClosesWhenFirstFrameIsNotInitContext(t *testing.T) {
	server := setupTestConnection(t)
	conn := connectTestWS(t, server)

	writeTestFrame(t, conn, dialog.InboundFrame{Type: "user_message", Content: "안녕"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Error(t, err, "connection should close instead of processing a frame before init_context")
}
