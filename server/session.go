package server

import (
	"net"

	"golang.org/x/time/rate"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
)

const (
	// Per-session datagram budget. Move orders arrive on user clicks, so
	// anything past this is a flooding or desynced client.
	datagramRate  = 30 // sustained datagrams/s
	datagramBurst = 60
)

// Player is one connected session slot: a UDP endpoint bound to a
// faction. The zero value is a free slot.
type Player struct {
	Addr         *net.UDPAddr
	Faction      int32
	Name         string
	AwaitingFull bool    // true until the next full packet goes out
	InactiveFor  float64 // seconds since the last datagram

	key     string // Addr.String(), the endpoint identity
	limiter *rate.Limiter
	active  bool
}

// PlayerTable tracks connected sessions. At most one player per faction,
// exactly one player per endpoint.
type PlayerTable struct {
	players  []Player
	factions int
}

// NewPlayerTable sizes the table: up to maxPlayers sessions competing for
// factionCount faction slots.
func NewPlayerTable(maxPlayers, factionCount int) *PlayerTable {
	return &PlayerTable{
		players:  make([]Player, maxPlayers),
		factions: factionCount,
	}
}

// Join binds addr to the first free faction. An address already in the
// table rebinds instead (reconnect): same faction, full sync re-flagged,
// no duplicate slot. Returns nil when no faction or slot is free.
func (t *PlayerTable) Join(addr *net.UDPAddr, name string) *Player {
	key := addr.String()
	if p := t.byKey(key); p != nil {
		p.Addr = addr
		if name != "" {
			p.Name = name
		}
		p.AwaitingFull = true
		p.InactiveFor = 0
		return p
	}
	faction := t.freeFaction()
	if faction == game.NoFaction {
		return nil
	}
	for i := range t.players {
		if t.players[i].active {
			continue
		}
		t.players[i] = Player{
			Addr:         addr,
			Faction:      faction,
			Name:         name,
			AwaitingFull: true,
			key:          key,
			limiter:      rate.NewLimiter(datagramRate, datagramBurst),
			active:       true,
		}
		return &t.players[i]
	}
	return nil
}

// Touch records a datagram from addr: resets the inactivity timer and
// charges the rate limiter. Returns the session and false when the
// datagram should be dropped (unknown endpoint or over budget).
func (t *PlayerTable) Touch(addr *net.UDPAddr) (*Player, bool) {
	p := t.byKey(addr.String())
	if p == nil {
		return nil, false
	}
	p.InactiveFor = 0
	return p, p.limiter.Allow()
}

// Tick ages every session by dt seconds and releases those idle past
// timeout (0 disables). Released players are returned for logging.
func (t *PlayerTable) Tick(dt, timeout float64) []Player {
	var removed []Player
	for i := range t.players {
		p := &t.players[i]
		if !p.active {
			continue
		}
		p.InactiveFor += dt
		if timeout > 0 && p.InactiveFor > timeout {
			removed = append(removed, *p)
			t.players[i] = Player{}
		}
	}
	return removed
}

// ForEach calls fn for every connected session.
func (t *PlayerTable) ForEach(fn func(*Player)) {
	for i := range t.players {
		if t.players[i].active {
			fn(&t.players[i])
		}
	}
}

// Count returns the number of connected sessions.
func (t *PlayerTable) Count() int {
	n := 0
	for i := range t.players {
		if t.players[i].active {
			n++
		}
	}
	return n
}

// ByFaction returns the session bound to faction, nil when unbound.
func (t *PlayerTable) ByFaction(faction int32) *Player {
	for i := range t.players {
		if t.players[i].active && t.players[i].Faction == faction {
			return &t.players[i]
		}
	}
	return nil
}

func (t *PlayerTable) byKey(key string) *Player {
	for i := range t.players {
		if t.players[i].active && t.players[i].key == key {
			return &t.players[i]
		}
	}
	return nil
}

// freeFaction returns the lowest faction id with no bound player.
func (t *PlayerTable) freeFaction() int32 {
	for f := int32(0); f < int32(t.factions); f++ {
		if t.ByFaction(f) == nil {
			return f
		}
	}
	return game.NoFaction
}
