// Package transport manages the websocket pub/sub connection to the push
// broker: connect, reconnect, channel subscription, and raw event
// delivery. It owns no business logic; a broken connection degrades to
// silence, never to an error in calling code.
package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/craftlink/craftlink/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Handler receives every raw event published on a subscribed channel.
// Handlers must be quick; the read loop delivers them inline.
type Handler func(channel, eventName string, data json.RawMessage)

// frame is the wire format exchanged with the broker.
type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// subscription records one channel's event filter and handler.
type subscription struct {
	events  map[string]bool
	handler Handler
}

// ChannelNames derives every channel the identity must listen on: the
// primary name plus one per historical role alias, because the broker is
// not consistent about which spelling it publishes under.
func ChannelNames(id model.Identity) []string {
	aliases := id.ChannelAliases()
	names := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		names = append(names, fmt.Sprintf("notifications.%s.%d", alias, id.UserID))
	}
	return names
}

// Transport is the websocket pub/sub client.
type Transport struct {
	url    string
	token  string
	logger *log.Logger

	mu      sync.Mutex
	subs    map[string]subscription
	conn    *websocket.Conn
	done    chan struct{}
	running bool

	// writeMu serializes every write on the socket; gorilla/websocket
	// permits only one concurrent writer per connection.
	writeMu sync.Mutex
}

// New creates a transport for the given broker URL. The token
// authenticates the session on dial.
func New(url, token string, logger *log.Logger) *Transport {
	return &Transport{
		url:    url,
		token:  token,
		logger: logger,
		subs:   make(map[string]subscription),
	}
}

// Connect starts the connection loop in the background. Dial failures are
// retried with backoff internally and never surface to the caller; during
// outages subscribers simply observe no events.
func (t *Transport) Connect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.done = make(chan struct{})
	go t.run(t.done)
}

// Subscribe registers a handler for the named events on one channel. An
// empty event list subscribes to everything published on the channel.
// Safe to call before or after Connect.
func (t *Transport) Subscribe(channel string, eventNames []string, h Handler) {
	events := make(map[string]bool, len(eventNames))
	for _, name := range eventNames {
		events[name] = true
	}

	t.mu.Lock()
	t.subs[channel] = subscription{events: events, handler: h}
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		t.send(conn, frame{Event: "subscribe", Channel: channel})
	}
}

// Unsubscribe removes one channel's handler. Identity teardown must call
// this for every alias channel, or listeners leak into the next session.
func (t *Transport) Unsubscribe(channel string) {
	t.mu.Lock()
	_, existed := t.subs[channel]
	delete(t.subs, channel)
	conn := t.conn
	t.mu.Unlock()

	if existed && conn != nil {
		t.send(conn, frame{Event: "unsubscribe", Channel: channel})
	}
}

// UnsubscribeAll removes every registered channel.
func (t *Transport) UnsubscribeAll() {
	t.mu.Lock()
	channels := make([]string, 0, len(t.subs))
	for ch := range t.subs {
		channels = append(channels, ch)
	}
	t.mu.Unlock()

	for _, ch := range channels {
		t.Unsubscribe(ch)
	}
}

// Disconnect stops the connection loop and closes the socket.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.done)
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// run dials, serves one connection until it breaks, and redials with
// exponential backoff until Disconnect.
func (t *Transport) run(done chan struct{}) {
	backoff := reconnectMin

	for {
		select {
		case <-done:
			return
		default:
		}

		conn, err := t.dial()
		if err != nil {
			if t.logger != nil {
				t.logger.Printf("transport: dial %s: %v", t.url, err)
			}
			select {
			case <-done:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}
		backoff = reconnectMin

		t.serve(conn, done)

		select {
		case <-done:
			return
		default:
			// Connection dropped; loop around and redial.
		}
	}
}

// dial opens the socket and replays every registered subscription.
func (t *Transport) dial() (*websocket.Conn, error) {
	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(t.url, header)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.conn = conn
	channels := make([]string, 0, len(t.subs))
	for ch := range t.subs {
		channels = append(channels, ch)
	}
	t.mu.Unlock()

	for _, ch := range channels {
		t.send(conn, frame{Event: "subscribe", Channel: ch})
	}
	return conn, nil
}

// serve pumps one connection: a ping ticker keeps it alive and the read
// loop dispatches frames until the connection breaks or done closes.
func (t *Transport) serve(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		t.mu.Unlock()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-done:
				return
			case <-ticker.C:
				if err := t.write(conn, websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var f frame
		if json.Unmarshal(raw, &f) != nil || f.Event == "" {
			continue
		}
		t.dispatch(f)
	}
}

// dispatch delivers a frame to its channel's handler, honoring the event
// filter. Frames for channels nobody subscribed to are dropped.
func (t *Transport) dispatch(f frame) {
	t.mu.Lock()
	sub, ok := t.subs[f.Channel]
	t.mu.Unlock()

	if !ok {
		return
	}
	if len(sub.events) > 0 && !sub.events[f.Event] {
		return
	}
	sub.handler(f.Channel, f.Event, f.Data)
}

// send writes a control frame, logging failures instead of returning them:
// a failed subscribe will be replayed on the next reconnect anyway.
func (t *Transport) send(conn *websocket.Conn, f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := t.write(conn, websocket.TextMessage, data); err != nil && t.logger != nil {
		t.logger.Printf("transport: sending %s for %s: %v", f.Event, f.Channel, err)
	}
}

// write performs one serialized write with the standard deadline.
func (t *Transport) write(conn *websocket.Conn, messageType int, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}
