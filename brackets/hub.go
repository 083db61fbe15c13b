package brackets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to tournament rooms.
const (
	EventBracketGenerated    = "BRACKET_GENERATED"
	EventBracketReset        = "BRACKET_RESET"
	EventMatchUpdated        = "MATCH_UPDATED"
	EventVetoUpdated         = "VETO_UPDATED"
	EventTournamentCompleted = "TOURNAMENT_COMPLETED"
)

type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Publisher pushes tournament events to connected clients.
type Publisher interface {
	Publish(tournamentID int, eventType string, payload interface{})
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

func TournamentRoom(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

type roomMessage struct {
	room string
	data []byte
}

// Hub owns room membership. Only the Run goroutine touches rooms or closes a
// client's Send channel.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	done       chan struct{}
	rooms      map[string]map[*Client]struct{}
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, sendBuffer),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for room, clients := range h.rooms {
				for c := range clients {
					close(c.Send)
				}
				delete(h.rooms, room)
			}
			return

		case c := <-h.register:
			if _, ok := h.rooms[c.Room]; !ok {
				h.rooms[c.Room] = make(map[*Client]struct{})
			}
			h.rooms[c.Room][c] = struct{}{}
			h.logger.Debug("websocket client joined", slog.String("room", c.Room), slog.Int("clients", len(h.rooms[c.Room])))

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.rooms[msg.room] {
				select {
				case c.Send <- msg.data:
				default:
					h.logger.Warn("websocket client too slow, dropping", slog.String("room", msg.room))
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	clients, ok := h.rooms[c.Room]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.Send)
	if len(clients) == 0 {
		delete(h.rooms, c.Room)
	}
	h.logger.Debug("websocket client left", slog.String("room", c.Room))
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToRoom queues message for every client in roomID. It never blocks:
// when the queue is full the message is dropped.
func (h *Hub) BroadcastToRoom(roomID string, message WebSocketMessage) {
	message.RoomID = roomID
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", slog.String("room", roomID), slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- roomMessage{room: roomID, data: data}:
	default:
		h.logger.Warn("websocket broadcast queue full, message dropped", slog.String("room", roomID), slog.String("type", message.Type))
	}
}

func (h *Hub) Publish(tournamentID int, eventType string, payload interface{}) {
	h.BroadcastToRoom(TournamentRoom(tournamentID), WebSocketMessage{Type: eventType, Payload: payload})
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	Send chan []byte
	Room string
}

func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{hub: hub, conn: conn, Send: make(chan []byte, sendBuffer), Room: room}
}

// ReadPump drains the connection; clients are read-only so incoming messages are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write failed", slog.String("room", c.Room), slog.Any("error", err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
