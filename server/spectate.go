package server

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
	"github.com/DirusLupito/Light-Year-Wars-C-sub000/protocol"
)

const (
	spectWriteWait  = 10 * time.Second
	spectPongWait   = 60 * time.Second
	spectPingPeriod = (spectPongWait * 9) / 10
	spectSendBuf    = 16

	maxSpectators      = 64
	maxSpectatorsPerIP = 4
)

var spectUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// StateFrame is the msgpack-encoded view streamed to spectators. It is a
// side channel for observers and dashboards; the UDP wire contract is
// untouched by it.
type StateFrame struct {
	Tick    uint64                   `msgpack:"t"`
	Planets []protocol.PlanetDynamic `msgpack:"p"`
	Ships   []protocol.StarshipState `msgpack:"s"`
}

// Spectator is one read-only websocket viewer.
type Spectator struct {
	hub  *SpectatorHub
	conn *websocket.Conn
	send chan []byte
	ip   string
}

// SpectatorHub fans state frames out to viewers. Input from spectators is
// discarded; they can watch, nothing else.
type SpectatorHub struct {
	mu         sync.RWMutex
	spectators map[*Spectator]bool
	ipConns    map[string]int
	register   chan *Spectator
	unregister chan *Spectator
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewSpectatorHub creates a hub; call Run on its own goroutine.
func NewSpectatorHub() *SpectatorHub {
	return &SpectatorHub{
		spectators: make(map[*Spectator]bool),
		ipConns:    make(map[string]int),
		register:   make(chan *Spectator, 16),
		unregister: make(chan *Spectator, 16),
		stop:       make(chan struct{}),
	}
}

// Run processes register/unregister events until Stop.
func (h *SpectatorHub) Run() {
	for {
		select {
		case sp := <-h.register:
			h.mu.Lock()
			h.spectators[sp] = true
			h.mu.Unlock()
		case sp := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.spectators[sp]; ok {
				delete(h.spectators, sp)
				close(sp.send)
			}
			h.mu.Unlock()
			h.release(sp.ip)
		case <-h.stop:
			return
		}
	}
}

// Stop shuts the hub down.
func (h *SpectatorHub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// BroadcastState encodes the level's dynamic state once and queues it to
// every viewer. Slow viewers skip frames rather than stalling the tick.
func (h *SpectatorHub) BroadcastState(tick uint64, lvl *game.Level) {
	h.mu.RLock()
	n := len(h.spectators)
	h.mu.RUnlock()
	if n == 0 {
		return
	}

	frame := StateFrame{
		Tick:    tick,
		Planets: protocol.SnapshotFromLevel(lvl).Planets,
		Ships:   protocol.FullFromLevel(lvl).Ships,
	}
	data, err := msgpack.Marshal(&frame)
	if err != nil {
		log.Printf("spectate: marshal frame: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sp := range h.spectators {
		select {
		case sp.send <- data:
		default:
		}
	}
}

// Handler returns the websocket endpoint for viewers.
func (h *SpectatorHub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-h.stop:
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		ip := extractIP(r)
		if !h.canAccept(ip) {
			http.Error(w, "too many spectators", http.StatusServiceUnavailable)
			return
		}
		conn, err := spectUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("spectate: upgrade: %v", err)
			return
		}
		// Slots are claimed only once the handshake has succeeded, so a
		// failed upgrade never consumes one.
		if !h.claim(ip) {
			conn.Close()
			return
		}
		sp := &Spectator{hub: h, conn: conn, send: make(chan []byte, spectSendBuf), ip: ip}
		select {
		case h.register <- sp:
		case <-h.stop:
			h.release(ip)
			conn.Close()
			return
		}
		go sp.writePump()
		go sp.readPump()
	})
}

// canAccept is the pre-handshake capacity check; it claims nothing.
func (h *SpectatorHub) canAccept(ip string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.spectators) < maxSpectators && h.ipConns[ip] < maxSpectatorsPerIP
}

// claim takes one per-IP slot. A handshake that raced past canAccept can
// still lose here.
func (h *SpectatorHub) claim(ip string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.spectators) >= maxSpectators || h.ipConns[ip] >= maxSpectatorsPerIP {
		return false
	}
	h.ipConns[ip]++
	return true
}

// release returns a claimed per-IP slot.
func (h *SpectatorHub) release(ip string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
}

// writePump pushes frames and pings until the viewer goes away.
func (sp *Spectator) writePump() {
	ticker := time.NewTicker(spectPingPeriod)
	defer func() {
		ticker.Stop()
		sp.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-sp.send:
			sp.conn.SetWriteDeadline(time.Now().Add(spectWriteWait))
			if !ok {
				sp.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sp.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			sp.conn.SetWriteDeadline(time.Now().Add(spectWriteWait))
			if err := sp.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards anything the viewer sends and keeps pong deadlines.
func (sp *Spectator) readPump() {
	defer func() {
		sp.hub.unregister <- sp
		sp.conn.Close()
	}()
	sp.conn.SetReadLimit(512)
	sp.conn.SetReadDeadline(time.Now().Add(spectPongWait))
	sp.conn.SetPongHandler(func(string) error {
		sp.conn.SetReadDeadline(time.Now().Add(spectPongWait))
		return nil
	})
	for {
		if _, _, err := sp.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
