package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simonjohansson/gemtracker/internal/model"
)

const (
	broadcastBuffer = 128
	writeTimeout    = 2 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	kit  string
	mu   sync.Mutex
}

// hub fans events out to websocket clients. Publish never blocks: when the
// queue is full the oldest event is dropped and clients are told to resync.
type hub struct {
	upgrader   websocket.Upgrader
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan model.Event
	done       chan struct{}
	closeOnce  sync.Once
	publishMu  sync.Mutex
	clients    map[*wsClient]struct{}
}

func newHub() *hub {
	return newHubWithBuffer(broadcastBuffer)
}

func newHubWithBuffer(size int) *hub {
	h := &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan model.Event, size),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]struct{}),
	}
	go h.run()
	return h
}

func (h *hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn, kit: r.URL.Query().Get("kit")}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.readUntilClosed(client)
}

// readUntilClosed drains client frames so close frames are processed, then
// unregisters the client once the connection fails.
func (h *hub) readUntilClosed(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) Publish(event model.Event) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	select {
	case h.broadcast <- event:
		return
	default:
	}

	// Saturated: make room, then replace the lost event with a resync hint.
	select {
	case <-h.broadcast:
	default:
	}
	select {
	case h.broadcast <- model.Event{Type: model.EventTypeResyncRequired, Timestamp: event.Timestamp}:
	default:
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case event := <-h.broadcast:
			h.deliver(event)
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

func (h *hub) deliver(event model.Event) {
	for client := range h.clients {
		if !client.wants(event) {
			continue
		}
		if err := client.send(event); err != nil {
			h.drop(client)
		}
	}
}

func (h *hub) drop(client *wsClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	_ = client.conn.Close()
}

func (c *wsClient) send(event model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

// Events without a kit id (pick deletions, resync hints) reach every client.
func (c *wsClient) wants(event model.Event) bool {
	return c.kit == "" || event.KitID == "" || c.kit == event.KitID
}
