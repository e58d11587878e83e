package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"emotion-detector/internal/models"
	"emotion-detector/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Message types on /ws.
const (
	MsgWelcome   = "WELCOME"
	MsgPing      = "PING"
	MsgPong      = "PONG"
	MsgText      = "DETECT_TEXT"
	MsgFace      = "DETECT_FACE"
	MsgResult    = "DETECTION_RESULT"
	MsgError     = "ERROR"
	wsAppVersion = "1.0"
)

type inboundMessage struct {
	Type    string              `json:"type"`
	Payload jsoniter.RawMessage `json:"payload"`
}

type wsClient struct {
	conn   *websocket.Conn
	id     string
	send   chan models.WebSocketMessage
	done   chan struct{}
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
	})
}

// push queues a message without blocking; it is dropped if the client is
// gone or its buffer is full.
func (c *wsClient) push(msg models.WebSocketMessage) bool {
	msg.ClientID = c.id
	msg.Timestamp = time.Now().Unix()
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Hub tracks websocket clients and runs their detections.
type Hub struct {
	detector   *services.Detector
	log        *zap.Logger
	upgrader   websocket.Upgrader
	maxMessage int64

	mu      sync.RWMutex
	clients map[string]*wsClient
	wg      sync.WaitGroup
}

func NewHub(detector *services.Detector, maxMessageBytes int64, log *zap.Logger) *Hub {
	if maxMessageBytes <= 0 {
		maxMessageBytes = 50 << 20
	}
	return &Hub{
		detector:   detector,
		log:        log,
		maxMessage: maxMessageBytes,
		clients:    make(map[string]*wsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds c to the hub. It reports false when another live client
// already holds the same ID.
func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		h.mu.Unlock()
		return false
	}
	h.clients[c.id] = c
	h.mu.Unlock()
	h.detector.Metrics().IncrementWebSocketConnections()
	return true
}

// reject tells a client its requested ID is taken and closes the connection.
func (h *Hub) reject(conn *websocket.Conn, clientID string) {
	h.log.Warn("websocket client id in use", zap.String("client_id", clientID))
	h.detector.Metrics().IncrementWebSocketErrors()

	msg := errorMessage(models.ErrorResponse{Error: "Client ID in use", Message: clientID})
	msg.Timestamp = time.Now().Unix()
	if data, err := jsonc.Marshal(msg); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, data)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "client id in use"))
	conn.Close()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	h.detector.Metrics().DecrementWebSocketConnections()
}

// ServeWS upgrades the connection and serves it until the client leaves or
// the hub is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		conn:   conn,
		id:     clientID,
		send:   make(chan models.WebSocketMessage, sendBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	if !h.register(c) {
		cancel()
		h.reject(conn, clientID)
		return
	}
	h.wg.Add(1)
	h.log.Info("websocket client connected", zap.String("client_id", clientID))

	go h.writePump(c)
	c.push(models.WebSocketMessage{
		Type: MsgWelcome,
		Payload: map[string]interface{}{
			"message": "Connected to " + ServiceName,
			"version": wsAppVersion,
		},
	})

	h.readPump(c)

	c.close()
	h.unregister(c)
	h.wg.Done()
	h.log.Info("websocket client disconnected", zap.String("client_id", clientID))
}

func (h *Hub) readPump(c *wsClient) {
	c.conn.SetReadLimit(h.maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", zap.String("client_id", c.id), zap.Error(err))
				h.detector.Metrics().IncrementWebSocketErrors()
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.detector.Metrics().IncrementWebSocketMessages()

		var msg inboundMessage
		if err := jsonc.Unmarshal(data, &msg); err != nil {
			h.detector.Metrics().IncrementWebSocketErrors()
			c.push(errorMessage(models.ErrorResponse{Error: "Invalid message", Message: err.Error()}))
			continue
		}
		h.log.Debug("websocket message", zap.String("client_id", c.id), zap.String("type", msg.Type))

		c.push(h.handle(c.ctx, msg))
	}
}

// handle turns one inbound message into its reply.
func (h *Hub) handle(ctx context.Context, msg inboundMessage) models.WebSocketMessage {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	switch msg.Type {
	case MsgPing:
		return models.WebSocketMessage{Type: MsgPong}

	case MsgText:
		var req models.DetectTextRequest
		if err := jsonc.Unmarshal(msg.Payload, &req); err != nil || req.Text == nil {
			return errorMessage(models.ErrorResponse{Error: "No text provided", Message: "payload.text is required"})
		}
		det, err := h.detector.DetectText(ctx, *req.Text)
		if err != nil {
			_, body := textError(err, h.detector.MaxTextLength(), h.log)
			return errorMessage(body)
		}
		return models.WebSocketMessage{Type: MsgResult, Payload: textResponse(det)}

	case MsgFace:
		var req models.DetectFaceRequest
		if err := jsonc.Unmarshal(msg.Payload, &req); err != nil || req.Image == nil {
			return errorMessage(models.ErrorResponse{Error: "No image provided", Message: "payload.image is required"})
		}
		det, err := h.detector.DetectFace(ctx, *req.Image)
		if err != nil {
			_, body := faceError(err, h.log)
			return errorMessage(body)
		}
		return models.WebSocketMessage{Type: MsgResult, Payload: faceResponse(det)}

	default:
		return errorMessage(models.ErrorResponse{Error: "Unknown message type", Message: msg.Type})
	}
}

func errorMessage(body models.ErrorResponse) models.WebSocketMessage {
	return models.WebSocketMessage{Type: MsgError, Payload: body}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			data, err := jsonc.Marshal(msg)
			if err != nil {
				h.log.Error("websocket encode failed", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

// CloseAll sends a close frame to every client and waits for their
// handlers to return, or for ctx to expire.
func (h *Hub) CloseAll(ctx context.Context) {
	h.mu.RLock()
	for id, c := range h.clients {
		c.close()
		h.log.Info("closing websocket client", zap.String("client_id", id))
	}
	h.mu.RUnlock()

	waited := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		h.log.Warn("websocket clients did not close in time")
	}
}
