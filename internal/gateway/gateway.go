package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"golf-lite/internal/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browsers connect from whatever origin hosts the client build.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Gateway upgrades websocket clients and feeds their messages to the
// room manager.
type Gateway struct {
	mgr *room.Manager
}

func New(mgr *room.Manager) *Gateway {
	return &Gateway{mgr: mgr}
}

// HandleWS is the /ws endpoint. Each connection gets a fresh player id;
// join_room may override it to reclaim an existing seat.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] upgrade failed: %v", err)
		return
	}
	c := &Connection{
		playerID: uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		gw:       g,
	}
	log.Printf("[Gateway] connected: %s", c.playerID)
	go c.writePump()
	c.readPump()
}

// Connection is one websocket client. Writes go through the send
// channel so the single writePump goroutine owns the socket.
type Connection struct {
	playerID string
	conn     *websocket.Conn
	send     chan []byte
	once     sync.Once
	gw       *Gateway
}

// SendJSON queues a message without blocking game processing. A client
// that cannot drain its buffer loses messages rather than stalling the
// room.
func (c *Connection) SendJSON(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Gateway] encode outbound: %v", err)
		return
	}
	select {
	case c.send <- raw:
	default:
		log.Printf("[Gateway] %s send buffer full, dropping message", c.playerID)
	}
}

func (c *Connection) close() {
	c.once.Do(func() { close(c.send) })
}

func (c *Connection) readPump() {
	defer func() {
		if err := c.gw.mgr.Leave(context.Background(), c.playerID); err != nil {
			log.Printf("[Gateway] leave on disconnect: %v", err)
		}
		c.close()
		c.conn.Close()
		log.Printf("[Gateway] disconnected: %s", c.playerID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Gateway] %s read error: %v", c.playerID, err)
			}
			return
		}
		c.dispatch(raw)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
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
