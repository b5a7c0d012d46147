// Package client keeps a local mirror of the authoritative level from
// server packets. Rendering reads the mirror read-only; between packets
// the mirror advances with the same simulation step the server runs, and
// periodic snapshots pull it back onto the authoritative track.
package client

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
	"github.com/DirusLupito/Light-Year-Wars-C-sub000/protocol"
)

// ErrServerFull is returned by Poll when the server refuses onboarding.
var ErrServerFull = errors.New("client: server is full")

const (
	maxDatagram = 65535

	// pollWait bounds the blocking read in Poll. An already-expired
	// deadline fails without delivering buffered datagrams, so it must
	// sit slightly in the future.
	pollWait = time.Millisecond
)

// Client is one player's connection and local state.
type Client struct {
	conn    *net.UDPConn
	readBuf []byte

	Level   game.Level
	Faction int32 // assigned faction id, NoFaction before assignment
	HasFull bool  // true once a full packet has been applied
}

// Dial connects the UDP socket. No datagram is sent until Join.
func Dial(serverAddr string) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", serverAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", serverAddr, err)
	}
	return &Client{
		conn:    conn,
		readBuf: make([]byte, maxDatagram),
		Faction: game.NoFaction,
	}, nil
}

// Close releases the socket.
func (c *Client) Close() error { return c.conn.Close() }

// Join requests onboarding. There is no acknowledgment protocol; callers
// re-send until a full packet arrives.
func (c *Client) Join(name string) error {
	msg := protocol.JoinPrefix
	if name != "" {
		msg += " " + name
	}
	_, err := c.conn.Write([]byte(msg))
	return err
}

// SendMoveOrder asks the server to launch from origins toward dest.
func (c *Client) SendMoveOrder(origins []int32, dest int32) error {
	buf, err := protocol.EncodeMoveOrder(&protocol.MoveOrder{Dest: dest, Origins: origins})
	if err != nil {
		return err
	}
	_, err = c.conn.Write(buf)
	return err
}

// Poll drains every pending datagram and applies each in arrival order,
// giving up within pollWait once the queue is empty. Malformed packets
// are dropped. Returns ErrServerFull when the server refused us;
// everything else is non-fatal.
func (c *Client) Poll() error {
	for {
		c.conn.SetReadDeadline(time.Now().Add(pollWait))
		n, err := c.conn.Read(c.readBuf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil
			}
			return nil
		}
		if err := c.apply(c.readBuf[:n]); err != nil {
			if errors.Is(err, ErrServerFull) {
				return err
			}
			log.Printf("client: dropped packet: %v", err)
		}
	}
}

// Step advances the mirror one local tick between packets.
func (c *Client) Step(dt float32) {
	if c.HasFull {
		c.Level.Update(dt)
	}
}

func (c *Client) apply(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if string(data) == protocol.ServerFullReply {
		return ErrServerFull
	}
	switch data[0] {
	case protocol.TagAssignment:
		a, err := protocol.DecodeAssignment(data)
		if err != nil {
			return err
		}
		c.Faction = a.Faction
		return nil
	case protocol.TagFull:
		f, err := protocol.DecodeFull(data)
		if err != nil {
			return err
		}
		c.ApplyFull(f)
		return nil
	case protocol.TagSnapshot:
		s, err := protocol.DecodeSnapshot(data)
		if err != nil {
			return err
		}
		return c.ApplySnapshot(s)
	case protocol.TagFleetLaunch:
		fl, err := protocol.DecodeFleetLaunch(data)
		if err != nil {
			return err
		}
		c.ApplyFleetLaunch(fl)
		return nil
	default:
		return fmt.Errorf("client: unknown tag 0x%02x", data[0])
	}
}

// ApplyFull rebuilds the mirror from a full packet. Owner/claimant ids
// and target indices are re-resolved against the packet's own tables;
// anything unresolvable becomes empty rather than dangling.
func (c *Client) ApplyFull(f *protocol.Full) {
	lvl := &c.Level
	lvl.Configure(len(f.Factions), len(f.Planets), len(f.Ships))
	lvl.Width, lvl.Height = f.Width, f.Height
	for i, fs := range f.Factions {
		lvl.Factions[i] = game.Faction{
			ID:    fs.ID,
			Color: fs.Color,
			Team:  game.NoTeam,
			Group: game.NoGroup,
		}
	}
	for i, ps := range f.Planets {
		lvl.Planets[i] = game.Planet{
			Pos:      game.Vec2{X: ps.Pos[0], Y: ps.Pos[1]},
			MaxCap:   ps.MaxCap,
			Fleet:    ps.Fleet,
			Owner:    c.resolveFaction(ps.Owner),
			Claimant: c.resolveFaction(ps.Claimant),
		}
	}
	for _, ss := range f.Ships {
		target := ss.Target
		if target < 0 || int(target) >= len(lvl.Planets) {
			target = game.NoTarget
		}
		lvl.SpawnStarship(
			game.Vec2{X: ss.Pos[0], Y: ss.Pos[1]},
			game.Vec2{X: ss.Vel[0], Y: ss.Vel[1]},
			c.resolveFaction(ss.Owner),
			target,
		)
	}
	c.HasFull = true
}

// ApplySnapshot overwrites dynamic planet state. The whole snapshot is
// rejected when the planet count disagrees with the mirror's layout (a
// stale packet from a previous match, or we have no layout yet).
func (c *Client) ApplySnapshot(s *protocol.Snapshot) error {
	if !c.HasFull || len(s.Planets) != len(c.Level.Planets) {
		return protocol.ErrPlanetCountMismatch
	}
	for i, pd := range s.Planets {
		p := &c.Level.Planets[i]
		p.Fleet = pd.Fleet
		p.Owner = c.resolveFaction(pd.Owner)
		p.Claimant = c.resolveFaction(pd.Claimant)
	}
	return nil
}

// ApplyFleetLaunch simulates an announced launch locally: same seed, same
// ring, bit-identical ships to every other peer.
func (c *Client) ApplyFleetLaunch(fl *protocol.FleetLaunch) {
	if !c.HasFull {
		return
	}
	c.Level.ReplayLaunch(
		int(fl.Origin), int(fl.Dest),
		c.resolveFaction(fl.Owner), int(fl.Count),
		game.NewSpawnRNG(fl.Seed),
	)
}

// resolveFaction maps a wire faction id onto the mirror's faction list;
// unknown ids collapse to empty.
func (c *Client) resolveFaction(id int32) int32 {
	if c.Level.FactionByID(id) == nil {
		return game.NoFaction
	}
	return id
}
