package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/veletaris/rosterforge/internal/roster"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// hub fans accepted roster snapshots out to websocket subscribers,
// keyed by roster id.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*websocket.Conn]bool)}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	rosterID := mux.Vars(r)["id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}

	h.mu.Lock()
	if h.subs[rosterID] == nil {
		h.subs[rosterID] = make(map[*websocket.Conn]bool)
	}
	h.subs[rosterID][conn] = true
	h.mu.Unlock()
	streamClients.Inc()

	// drain until the client goes away; subscribers never send anything
	// we act on
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.subs[rosterID], conn)
	h.mu.Unlock()
	streamClients.Dec()
	conn.Close()
}

// broadcast pushes the snapshot to every subscriber of the roster.
// Write failures drop the connection; the client reconnects.
func (h *hub) broadcast(rosterID string, r roster.Roster) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subs[rosterID] {
		if err := conn.WriteJSON(r); err != nil {
			log.Printf("ws push %s: %v", rosterID, err)
			conn.Close()
			delete(h.subs[rosterID], conn)
			streamClients.Dec()
		}
	}
}
