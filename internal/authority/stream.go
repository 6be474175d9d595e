package authority

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veletaris/rosterforge/internal/roster"
)

// Subscribe listens on the authority's roster stream and invokes fn
// with every pushed snapshot until ctx is cancelled. The authority
// pushes after each accepted mutation; the caller feeds snapshots
// straight into Store.SyncFromResponse. Reconnects with a flat
// backoff; a push for a roster the caller no longer cares about is
// simply discarded by the caller (there is no cancel-on-the-wire).
func (c *Client) Subscribe(ctx context.Context, rosterID string, fn func(roster.Roster)) {
	url := wsURL(c.base) + "/ws/rosters/" + rosterID
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.Printf("roster stream dial: %v (retrying)", err)
			select {
			case <-time.After(3 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		readLoop(ctx, conn, fn)
		conn.Close()
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, fn func(roster.Roster)) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("roster stream read: %v", err)
			}
			return
		}
		var r roster.Roster
		if err := json.Unmarshal(msg, &r); err != nil {
			log.Printf("roster stream decode: %v", err)
			continue
		}
		fn(r)
	}
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}
