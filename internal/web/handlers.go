package web

import (
	"encoding/json"
	"io/fs"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handlers holds dependencies for the status page's HTTP handlers.
type Handlers struct {
	hub      *Hub
	staticFS fs.FS
}

// NewHandlers creates handlers bound to hub, serving static assets from staticFS.
func NewHandlers(hub *Hub, staticFS fs.FS) *Handlers {
	return &Handlers{hub: hub, staticFS: staticFS}
}

// ServeIndex serves the status page's single HTML document.
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatusOnce returns a single status snapshot as JSON, for
// clients that would rather poll than hold a websocket open.
func (h *Handlers) HandleStatusOnce(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.hub.statusFunc())
}

// HandleStatusSocket upgrades to a websocket and pushes a status
// snapshot every broadcast tick until the client disconnects.
func (h *Handlers) HandleStatusSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, unsub := h.hub.Subscribe()
	defer unsub()

	// Send an immediate snapshot so the page has something before the first tick.
	if err := conn.WriteJSON(h.hub.statusFunc()); err != nil {
		return
	}

	for snap := range ch {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}
