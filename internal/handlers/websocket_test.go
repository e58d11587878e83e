package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFrame struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	ClientID  string          `json:"client_id"`
	Timestamp int64           `json:"timestamp"`
}

func dialWS(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)
	return dialURL(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws"+query)
}

func dialURL(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketSession(t *testing.T) {
	env := newTestEnv(t, Options{}, happyFace())
	conn := dialWS(t, env, "?clientId=tester")

	welcome := readFrame(t, conn)
	assert.Equal(t, MsgWelcome, welcome.Type)
	assert.Equal(t, "tester", welcome.ClientID)
	assert.NotZero(t, welcome.Timestamp)
	assert.Equal(t, 1, env.hub.Count())

	require.NoError(t, conn.WriteJSON(map[string]string{"type": MsgPing}))
	assert.Equal(t, MsgPong, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    MsgText,
		"payload": map[string]string{"text": "so happy"},
	}))
	res := readFrame(t, conn)
	require.Equal(t, MsgResult, res.Type, string(res.Payload))
	var text struct {
		Emotion string `json:"emotion"`
	}
	require.NoError(t, json.Unmarshal(res.Payload, &text))
	assert.Equal(t, "happy", text.Emotion)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    MsgFace,
		"payload": map[string]string{"image": encodedPNG(t)},
	}))
	res = readFrame(t, conn)
	require.Equal(t, MsgResult, res.Type, string(res.Payload))
	var face struct {
		Emotion       string `json:"emotion"`
		FacesDetected int    `json:"faces_detected"`
	}
	require.NoError(t, json.Unmarshal(res.Payload, &face))
	assert.Equal(t, "excited", face.Emotion)
	assert.Equal(t, 1, face.FacesDetected)

	assert.Equal(t, int64(2), env.detector.Metrics().GetTotalDetections())
}

func TestWebSocketErrors(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	conn := dialWS(t, env, "")

	welcome := readFrame(t, conn)
	assert.NotEmpty(t, welcome.ClientID)

	cases := []struct {
		msg   interface{}
		title string
	}{
		{map[string]string{"type": "FRAME"}, "Unknown message type"},
		{map[string]string{"type": MsgText}, "No text provided"},
		{map[string]interface{}{"type": MsgText, "payload": map[string]string{"text": " "}}, "Empty text"},
		{map[string]interface{}{"type": MsgFace, "payload": map[string]string{"image": "abc"}}, "Detection failed"},
	}
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	bad := readFrame(t, conn)
	assert.Equal(t, MsgError, bad.Type)
	assert.Contains(t, string(bad.Payload), "Invalid message")

	for _, c := range cases {
		require.NoError(t, conn.WriteJSON(c.msg))
		f := readFrame(t, conn)
		require.Equal(t, MsgError, f.Type)
		var body struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(f.Payload, &body))
		assert.Equal(t, c.title, body.Error)
	}
}

func TestWebSocketDuplicateClientID(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?clientId=dup"

	first := dialURL(t, url)
	assert.Equal(t, MsgWelcome, readFrame(t, first).Type)

	second := dialURL(t, url)
	rejected := readFrame(t, second)
	require.Equal(t, MsgError, rejected.Type)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rejected.Payload, &body))
	assert.Equal(t, "Client ID in use", body.Error)

	require.NoError(t, second.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)

	// The original client keeps its session.
	require.NoError(t, first.WriteJSON(map[string]string{"type": MsgPing}))
	pong := readFrame(t, first)
	assert.Equal(t, MsgPong, pong.Type)
	assert.Equal(t, "dup", pong.ClientID)
	assert.Equal(t, 1, env.hub.Count())
}

func TestHubCloseAll(t *testing.T) {
	env := newTestEnv(t, Options{}, nil)
	conn := dialWS(t, env, "")
	readFrame(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env.hub.CloseAll(ctx)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, env.hub.Count())
	assert.Equal(t, int64(0), env.detector.Metrics().GetWebSocketConnections())
}
