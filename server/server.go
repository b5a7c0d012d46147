package server

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
	"github.com/DirusLupito/Light-Year-Wars-C-sub000/protocol"
)

const (
	TickRate         = 60 // simulation ticks per second
	TickDuration     = time.Second / TickRate
	SnapshotInterval = 1.0 // seconds between dynamic-state broadcasts

	maxDatagram  = 65535
	drainPerTick = 256 // datagrams handled per tick at most
	defaultName  = "Commander"

	// pollWait bounds the blocking read during drain. An expired deadline
	// would fail without delivering buffered datagrams, so it must sit
	// slightly in the future; one millisecond is far inside the tick
	// budget.
	pollWait = time.Millisecond
)

// Config holds server settings. Zero values get sensible defaults in
// NewServer.
type Config struct {
	Addr              string // UDP listen address
	MaxPlayers        int
	FactionCount      int
	PlanetCount       int
	MapName           string
	InactivityTimeout float64 // seconds; 0 keeps idle sessions forever
	DB                *DB     // optional match persistence
}

// Server is the authoritative side: it owns the level, the session table
// and the socket, and everything mutates inside Tick on one goroutine.
type Server struct {
	cfg   Config
	conn  *net.UDPConn
	level *game.Level
	table *PlayerTable
	spect *SpectatorHub

	launchRNG   *game.SpawnRNG
	snapshotAcc float64
	tick        uint64
	matchID     uuid.UUID
	matchStart  time.Time
	readBuf     []byte
}

// NewServer binds the UDP socket and generates the first match.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":7855"
	}
	if cfg.FactionCount <= 0 {
		cfg.FactionCount = 4
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = cfg.FactionCount
	}
	if cfg.PlanetCount <= 0 {
		cfg.PlanetCount = cfg.FactionCount * 4
	}
	if cfg.MapName == "" {
		cfg.MapName = "frontier"
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", cfg.Addr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %q: %w", cfg.Addr, err)
	}

	s := &Server{
		cfg:       cfg,
		conn:      conn,
		level:     &game.Level{},
		table:     NewPlayerTable(cfg.MaxPlayers, cfg.FactionCount),
		spect:     NewSpectatorHub(),
		launchRNG: game.NewSpawnRNG(randomSeed()),
		readBuf:   make([]byte, maxDatagram),
	}
	if err := s.newMatch(); err != nil {
		conn.Close()
		return nil, err
	}
	go s.spect.Run()
	return s, nil
}

// Addr returns the bound UDP address.
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// Level exposes the authoritative level. Read it only from the tick
// goroutine (tests drive Tick directly).
func (s *Server) Level() *game.Level { return s.level }

// Table exposes the session table under the same single-goroutine rule.
func (s *Server) Table() *PlayerTable { return s.table }

// SpectatorHandler returns the websocket endpoint of the read-only feed.
func (s *Server) SpectatorHandler() http.Handler { return s.spect.Handler() }

// Close releases the socket.
func (s *Server) Close() error { return s.conn.Close() }

// Run drives the fixed-step loop until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("server: listening on %s, map %q, %d factions, %d planets",
		s.conn.LocalAddr(), s.cfg.MapName, s.cfg.FactionCount, s.cfg.PlanetCount)
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()
	dt := 1.0 / float64(TickRate)
	for {
		select {
		case <-ctx.Done():
			s.spect.Stop()
			return ctx.Err()
		case <-ticker.C:
			s.Tick(dt)
		}
	}
}

// Tick runs one server step: drain datagrams, dispatch, simulate,
// broadcast. Exposed so tests can step deterministically.
func (s *Server) Tick(dt float64) {
	s.tick++
	s.drain()

	for _, p := range s.table.Tick(dt, s.cfg.InactivityTimeout) {
		log.Printf("server: %s (%s) timed out, faction %d freed", p.Name, p.key, p.Faction)
	}

	s.level.Update(float32(dt))

	if w := s.level.Winner(); w != game.NoFaction && s.table.Count() > 0 {
		s.endMatch(w)
	}

	s.snapshotAcc += dt
	if s.snapshotAcc >= SnapshotInterval {
		s.snapshotAcc -= SnapshotInterval
		s.broadcastSnapshot()
	}

	s.table.ForEach(func(p *Player) {
		if p.AwaitingFull {
			s.sendFull(p)
		}
	})
}

// drain handles every pending datagram, giving up within pollWait when
// the queue is empty.
func (s *Server) drain() {
	for i := 0; i < drainPerTick; i++ {
		s.conn.SetReadDeadline(time.Now().Add(pollWait))
		n, addr, err := s.conn.ReadFromUDP(s.readBuf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return
			}
			log.Printf("server: read: %v", err)
			return
		}
		s.dispatch(s.readBuf[:n], addr)
	}
}

// dispatch routes one datagram by its leading bytes. Malformed input is
// logged and dropped; nothing a client sends can take the server down.
func (s *Server) dispatch(data []byte, addr *net.UDPAddr) {
	if len(data) == 0 {
		return
	}
	if bytes.HasPrefix(data, []byte(protocol.JoinPrefix)) {
		s.handleJoin(data, addr)
		return
	}
	p, ok := s.table.Touch(addr)
	if p == nil || !ok {
		return
	}
	switch data[0] {
	case protocol.TagMoveOrder:
		mo, err := protocol.DecodeMoveOrder(data)
		if err != nil {
			log.Printf("server: bad move order from %s: %v", addr, err)
			return
		}
		s.applyMoveOrder(p, mo)
	default:
		log.Printf("server: unknown tag 0x%02x from %s", data[0], addr)
	}
}

func (s *Server) handleJoin(data []byte, addr *net.UDPAddr) {
	name := strings.TrimSpace(string(data[len(protocol.JoinPrefix):]))
	if name == "" {
		name = defaultName
	}
	p := s.table.Join(addr, name)
	if p == nil {
		s.conn.WriteToUDP([]byte(protocol.ServerFullReply), addr)
		log.Printf("server: refused %s, no free faction", addr)
		return
	}
	log.Printf("server: %s joined from %s as faction %d", p.Name, addr, p.Faction)
}

// applyMoveOrder launches from every origin the sender actually owns.
// Origins it does not own, self-sends and empty garrisons are skipped
// without any reply; a desynced or hostile client learns nothing.
func (s *Server) applyMoveOrder(p *Player, mo *protocol.MoveOrder) {
	for _, origin := range mo.Origins {
		if origin < 0 || int(origin) >= len(s.level.Planets) {
			continue
		}
		if s.level.Planets[origin].Owner != p.Faction {
			continue
		}
		seed := s.launchRNG.State()
		count := s.level.SendFleet(int(origin), int(mo.Dest), s.launchRNG)
		if count == 0 {
			continue
		}
		launch := protocol.FleetLaunch{
			Origin: origin,
			Dest:   mo.Dest,
			Count:  int32(count),
			Owner:  p.Faction,
			Seed:   seed,
		}
		s.broadcast(protocol.EncodeFleetLaunch(&launch))
	}
}

func (s *Server) broadcastSnapshot() {
	buf, err := protocol.EncodeSnapshot(protocol.SnapshotFromLevel(s.level))
	if err != nil {
		log.Printf("server: snapshot encode: %v", err)
		return
	}
	s.broadcast(buf)
	s.spect.BroadcastState(s.tick, s.level)
}

// broadcast sends the same bytes to every connected player.
func (s *Server) broadcast(buf []byte) {
	s.table.ForEach(func(p *Player) {
		s.conn.WriteToUDP(buf, p.Addr)
	})
}

// sendFull delivers the assignment and the complete state to one session
// and clears its awaiting-full flag. Loss is fine: the flag is re-set on
// the next join and snapshots carry the dynamics regardless.
func (s *Server) sendFull(p *Player) {
	s.conn.WriteToUDP(protocol.EncodeAssignment(&protocol.Assignment{Faction: p.Faction}), p.Addr)
	buf, err := protocol.EncodeFull(protocol.FullFromLevel(s.level))
	if err != nil {
		log.Printf("server: full encode: %v", err)
		return
	}
	s.conn.WriteToUDP(buf, p.Addr)
	p.AwaitingFull = false
}

// newMatch generates a fresh level and resets match bookkeeping.
func (s *Server) newMatch() error {
	if err := s.level.Generate(game.GenConfig{
		FactionCount: s.cfg.FactionCount,
		PlanetCount:  s.cfg.PlanetCount,
		MapName:      s.cfg.MapName,
	}); err != nil {
		return fmt.Errorf("new match: %w", err)
	}
	s.matchID = uuid.New()
	s.matchStart = time.Now()
	s.snapshotAcc = 0
	return nil
}

// endMatch archives the result and rolls straight into the next match.
// Persistence is best effort; a dead database never stops play.
func (s *Server) endMatch(winner int32) {
	duration := time.Since(s.matchStart).Seconds()
	log.Printf("server: match %s won by faction %d after %.0fs", s.matchID, winner, duration)
	if s.cfg.DB != nil {
		if err := s.cfg.DB.SaveMatch(MatchRecord{
			ID:        s.matchID.String(),
			MapName:   s.cfg.MapName,
			StartedAt: s.matchStart,
			Duration:  duration,
			Winner:    winner,
			Players:   s.table.Count(),
		}, s.level); err != nil {
			log.Printf("server: archive match: %v", err)
		}
	}
	if err := s.newMatch(); err != nil {
		log.Printf("server: regenerate: %v", err)
		return
	}
	s.table.ForEach(func(p *Player) { p.AwaitingFull = true })
}

// randomSeed draws a nonzero launch seed from the OS.
func randomSeed() uint32 {
	var b [4]byte
	crand.Read(b[:])
	seed := binary.LittleEndian.Uint32(b[:])
	if seed == 0 {
		seed = 1
	}
	return seed
}
