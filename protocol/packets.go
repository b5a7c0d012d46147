// Package protocol defines the wire format between server and clients:
// five little-endian fixed-layout packet types distinguished by a leading
// one-byte tag, plus the two plain-text handshake literals. The codec is
// pure data transform; it owns no sockets and mutates no level.
package protocol

// Packet type tags, always the first byte on the wire.
const (
	TagFull        byte = 1
	TagSnapshot    byte = 2
	TagFleetLaunch byte = 3
	TagMoveOrder   byte = 4
	TagAssignment  byte = 5
)

// Handshake literals. A client datagram starting with JoinPrefix requests
// onboarding; the server answers with Assignment+Full, or ServerFullReply
// when no faction slot is free.
const (
	JoinPrefix      = "JOIN"
	ServerFullReply = "SERVER_FULL"
)

// FactionState is the static wire form of a faction.
type FactionState struct {
	ID    int32
	Color [4]float32
}

// PlanetState is the full wire form of a planet. Owner and Claimant are
// faction ids, -1 for none.
type PlanetState struct {
	Pos      [2]float32
	MaxCap   float32
	Fleet    float32
	Owner    int32
	Claimant int32
}

// StarshipState is the wire form of a starship. Target is a planet index,
// -1 for none.
type StarshipState struct {
	Pos    [2]float32
	Vel    [2]float32
	Owner  int32
	Target int32
}

// Full carries complete static+dynamic match state. Sent once per client
// at join, and again whenever its session is re-flagged for full sync.
type Full struct {
	Width    float32
	Height   float32
	Factions []FactionState
	Planets  []PlanetState
	Ships    []StarshipState
}

// PlanetDynamic is the per-planet payload of a snapshot.
type PlanetDynamic struct {
	Fleet    float32
	Owner    int32
	Claimant int32
}

// Snapshot carries dynamic planet state only. Receivers must already hold
// the static layout from a Full packet; a count mismatch rejects the
// whole snapshot.
type Snapshot struct {
	Planets []PlanetDynamic
}

// FleetLaunch announces a launch so every peer simulates the spawn ring
// locally from Seed instead of receiving per-ship data.
type FleetLaunch struct {
	Origin int32
	Dest   int32
	Count  int32
	Owner  int32 // faction id
	Seed   uint32
}

// MoveOrder is a client request: launch from each listed origin toward
// Dest. The server silently skips origins the sender does not own.
type MoveOrder struct {
	Dest    int32
	Origins []int32
}

// Assignment tells a newly joined client which faction it controls.
type Assignment struct {
	Faction int32
}
