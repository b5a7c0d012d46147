package client

import (
	"testing"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
	"github.com/DirusLupito/Light-Year-Wars-C-sub000/protocol"
)

// serverLevel builds the authoritative side of the tests.
func serverLevel(t *testing.T) *game.Level {
	t.Helper()
	var l game.Level
	if err := l.Generate(game.GenConfig{FactionCount: 3, PlanetCount: 9, MapName: "clienttest"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	l.SpawnStarship(game.Vec2{X: 50, Y: 60}, game.Vec2{X: 10, Y: 0}, 1, 4)
	return &l
}

// mirrorOf runs a level through the full-packet path into a fresh client.
func mirrorOf(t *testing.T, l *game.Level) *Client {
	t.Helper()
	buf, err := protocol.EncodeFull(protocol.FullFromLevel(l))
	if err != nil {
		t.Fatalf("encode full: %v", err)
	}
	f, err := protocol.DecodeFull(buf)
	if err != nil {
		t.Fatalf("decode full: %v", err)
	}
	c := &Client{Faction: game.NoFaction}
	c.ApplyFull(f)
	return c
}

func TestApplyFullMirrorsLevel(t *testing.T) {
	l := serverLevel(t)
	c := mirrorOf(t, l)

	if !c.HasFull {
		t.Fatal("HasFull not set")
	}
	if c.Level.Width != l.Width || c.Level.Height != l.Height {
		t.Errorf("dimensions %vx%v, want %vx%v", c.Level.Width, c.Level.Height, l.Width, l.Height)
	}
	if len(c.Level.Factions) != len(l.Factions) || len(c.Level.Planets) != len(l.Planets) || len(c.Level.Ships) != len(l.Ships) {
		t.Fatalf("mirror counts differ")
	}
	for i := range l.Planets {
		s, m := &l.Planets[i], &c.Level.Planets[i]
		if s.Pos != m.Pos || s.MaxCap != m.MaxCap || s.Fleet != m.Fleet ||
			s.Owner != m.Owner || s.Claimant != m.Claimant {
			t.Errorf("planet %d: mirror %+v, server %+v", i, *m, *s)
		}
	}
	for i := range l.Ships {
		s, m := &l.Ships[i], &c.Level.Ships[i]
		if s.Pos != m.Pos || s.Vel != m.Vel || s.Owner != m.Owner || s.Target != m.Target {
			t.Errorf("ship %d: mirror %+v, server %+v", i, *m, *s)
		}
	}
}

func TestApplyFullDropsUnknownReferences(t *testing.T) {
	f := &protocol.Full{
		Width: 100, Height: 100,
		Factions: []protocol.FactionState{{ID: 0}},
		Planets: []protocol.PlanetState{
			{Owner: 42, Claimant: game.NoFaction}, // unknown faction id
			{Owner: game.NoFaction, Claimant: game.NoFaction},
		},
		Ships: []protocol.StarshipState{
			{Owner: 0, Target: 99}, // target index out of range
		},
	}
	c := &Client{Faction: game.NoFaction}
	c.ApplyFull(f)

	if c.Level.Planets[0].Owner != game.NoFaction {
		t.Errorf("unknown owner id resolved to %d, want empty", c.Level.Planets[0].Owner)
	}
	if c.Level.Ships[0].Target != game.NoTarget {
		t.Errorf("out-of-range target resolved to %d, want none", c.Level.Ships[0].Target)
	}
}

func TestApplySnapshotOverwritesDynamics(t *testing.T) {
	l := serverLevel(t)
	c := mirrorOf(t, l)

	// The server moves on: a planet changes hands and garrisons shift.
	l.Planets[0].Fleet = 1.5
	l.Planets[2].Owner = 2
	l.Planets[2].Claimant = game.NoFaction
	l.Planets[2].Fleet = 3

	buf, err := protocol.EncodeSnapshot(protocol.SnapshotFromLevel(l))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := protocol.DecodeSnapshot(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := c.ApplySnapshot(snap); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if c.Level.Planets[0].Fleet != 1.5 {
		t.Errorf("planet 0 fleet = %v, want 1.5", c.Level.Planets[0].Fleet)
	}
	if c.Level.Planets[2].Owner != 2 {
		t.Errorf("planet 2 owner = %d, want 2", c.Level.Planets[2].Owner)
	}
}

func TestApplySnapshotRejectsCountMismatch(t *testing.T) {
	l := serverLevel(t)
	c := mirrorOf(t, l)
	before := c.Level.Planets[0]

	stale := &protocol.Snapshot{Planets: make([]protocol.PlanetDynamic, len(l.Planets)+2)}
	if err := c.ApplySnapshot(stale); err != protocol.ErrPlanetCountMismatch {
		t.Fatalf("err = %v, want ErrPlanetCountMismatch", err)
	}
	if c.Level.Planets[0] != before {
		t.Error("rejected snapshot still mutated the mirror")
	}

	fresh := &Client{Faction: game.NoFaction}
	if err := fresh.ApplySnapshot(&protocol.Snapshot{}); err != protocol.ErrPlanetCountMismatch {
		t.Errorf("snapshot before full sync: err = %v, want ErrPlanetCountMismatch", err)
	}
}

func TestApplyFleetLaunchMatchesServerSpawn(t *testing.T) {
	l := serverLevel(t)
	c := mirrorOf(t, l)

	rng := game.NewSpawnRNG(0xfeed)
	seed := rng.State()
	origin, dest := 0, 5
	owner := l.Planets[origin].Owner
	count := l.SendFleet(origin, dest, rng)
	if count == 0 {
		t.Fatal("server launch refused; home planet should be garrisoned")
	}

	c.ApplyFleetLaunch(&protocol.FleetLaunch{
		Origin: int32(origin),
		Dest:   int32(dest),
		Count:  int32(count),
		Owner:  owner,
		Seed:   seed,
	})

	if len(c.Level.Ships) != len(l.Ships) {
		t.Fatalf("mirror has %d ships, server has %d", len(c.Level.Ships), len(l.Ships))
	}
	for i := range l.Ships {
		if l.Ships[i] != c.Level.Ships[i] {
			t.Errorf("ship %d differs: server %+v, mirror %+v", i, l.Ships[i], c.Level.Ships[i])
		}
	}
	if c.Level.Planets[origin].Fleet != 0 {
		t.Errorf("mirror origin fleet = %v, want 0", c.Level.Planets[origin].Fleet)
	}
}

func TestStepBeforeFullIsNoop(t *testing.T) {
	c := &Client{Faction: game.NoFaction}
	c.Step(1.0 / 60) // must not panic on an empty mirror
	if c.HasFull {
		t.Error("HasFull flipped without a full packet")
	}
}

func TestMirrorStaysConsistentUnderDeadReckoning(t *testing.T) {
	l := serverLevel(t)
	c := mirrorOf(t, l)

	// Both sides tick identically; the mirror should track the
	// authoritative level exactly until packet loss desyncs them.
	dt := float32(1.0 / 60)
	for i := 0; i < 300; i++ {
		l.Update(dt)
		c.Step(dt)
	}
	for i := range l.Planets {
		if l.Planets[i].Fleet != c.Level.Planets[i].Fleet {
			t.Errorf("planet %d fleet drifted: server %v, mirror %v",
				i, l.Planets[i].Fleet, c.Level.Planets[i].Fleet)
		}
	}
	if len(l.Ships) != len(c.Level.Ships) {
		t.Errorf("ship counts drifted: server %d, mirror %d", len(l.Ships), len(c.Level.Ships))
	}
}
