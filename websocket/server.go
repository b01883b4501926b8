package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	fluid "github.com/esimov/mac-fluid/fluid-solver"
	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// Marker is sent by clients to release a tracer particle at a world position.
type Marker struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type HttpParams struct {
	Address string
	Prefix  string
	Root    string
}

// A server application calls the Upgrade method from an HTTP request handler to initiate a connection
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes every frame it accepts to all connected websocket clients as
// JSON. It implements fluid.Sink and http.Handler.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	markers []Marker
	logger  *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			h.logger.Println(err)
		}
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readSocket(conn)
}

// readSocket listens for markers sent by the client until the connection drops.
func (h *Hub) readSocket(conn *websocket.Conn) {
	defer h.drop(conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Printf("error: %v", err)
			}
			return
		}

		var m Marker
		if err := json.Unmarshal(msg, &m); err != nil {
			h.logger.Printf("ignoring message from %s: %v", conn.RemoteAddr(), err)
			continue
		}
		h.mu.Lock()
		h.markers = append(h.markers, m)
		h.mu.Unlock()
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Markers drains the markers received since the last call.
func (h *Hub) Markers() []Marker {
	h.mu.Lock()
	defer h.mu.Unlock()

	m := h.markers
	h.markers = nil
	return m
}

// Accept broadcasts f. Clients that cannot keep up are disconnected; that is
// never an error for the simulation.
func (h *Hub) Accept(f *fluid.Frame) error {
	msg, err := json.Marshal(f)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Printf("dropping %s: %v", conn.RemoteAddr(), err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
	return nil
}

// Handler serves the static files under p.Root at p.Prefix and the frame
// stream at /ws, logging every request.
func Handler(p HttpParams, hub *Hub) (http.Handler, error) {
	root, err := filepath.Abs(p.Root)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(p.Prefix, http.StripPrefix(p.Prefix, http.FileServer(http.Dir(root))))
	mux.Handle("/ws", hub)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.logger.Print(r.RemoteAddr + " " + r.Method + " " + r.URL.String())
		mux.ServeHTTP(w, r)
	}), nil
}

// Serve runs the http server until ctx is done.
func Serve(ctx context.Context, p HttpParams, hub *Hub) error {
	handler, err := Handler(p, hub)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    p.Address,
		Handler: handler,
	}

	errc := make(chan error, 1)
	go func() {
		hub.logger.Printf("serving %s as %s on %s", p.Root, p.Prefix, p.Address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	}
}
