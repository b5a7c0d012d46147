package protocol

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/DirusLupito/Light-Year-Wars-C-sub000/game"
)

// Decode failures. Callers drop the offending datagram; nothing here is
// fatal and no partial state is ever applied.
var (
	ErrShort               = errors.New("protocol: buffer shorter than its header implies")
	ErrBadTag              = errors.New("protocol: type tag mismatch")
	ErrTooLarge            = errors.New("protocol: count overflows its wire field")
	ErrPlanetCountMismatch = errors.New("protocol: snapshot planet count does not match level")
)

// Fixed wire sizes in bytes.
const (
	fullHeaderSize      = 1 + 4 + 4 + 4 + 4 + 4 // tag, w, h, three counts
	factionSize         = 4 + 16
	planetSize          = 8 + 4 + 4 + 4 + 4
	shipSize            = 8 + 8 + 4 + 4
	snapshotHeaderSize  = 1 + 4
	planetDynSize       = 4 + 4 + 4
	fleetLaunchSize     = 1 + 4 + 4 + 4 + 4 + 4
	moveOrderHeaderSize = 1 + 4 + 4
	assignmentSize      = 1 + 4
)

var le = binary.LittleEndian

func putU32(b []byte, v uint32) []byte  { return le.AppendUint32(b, v) }
func putI32(b []byte, v int32) []byte   { return le.AppendUint32(b, uint32(v)) }
func putF32(b []byte, v float32) []byte { return le.AppendUint32(b, math.Float32bits(v)) }

// reader walks a validated buffer. Every decode checks total length
// against the header's own counts before construction, so element reads
// never run short.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u32() uint32 {
	v := le.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32   { return int32(r.u32()) }
func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

// FullFromLevel captures the complete state of lvl as a Full packet
// value. Owner, claimant and target fields are ids/indices, not
// references, so the capture is safe to hold across level mutation.
func FullFromLevel(lvl *game.Level) *Full {
	f := &Full{
		Width:    lvl.Width,
		Height:   lvl.Height,
		Factions: make([]FactionState, len(lvl.Factions)),
		Planets:  make([]PlanetState, len(lvl.Planets)),
		Ships:    make([]StarshipState, len(lvl.Ships)),
	}
	for i := range lvl.Factions {
		fa := &lvl.Factions[i]
		f.Factions[i] = FactionState{ID: fa.ID, Color: fa.Color}
	}
	for i := range lvl.Planets {
		p := &lvl.Planets[i]
		f.Planets[i] = PlanetState{
			Pos:      [2]float32{p.Pos.X, p.Pos.Y},
			MaxCap:   p.MaxCap,
			Fleet:    p.Fleet,
			Owner:    p.Owner,
			Claimant: p.Claimant,
		}
	}
	for i := range lvl.Ships {
		s := &lvl.Ships[i]
		f.Ships[i] = StarshipState{
			Pos:    [2]float32{s.Pos.X, s.Pos.Y},
			Vel:    [2]float32{s.Vel.X, s.Vel.Y},
			Owner:  s.Owner,
			Target: s.Target,
		}
	}
	return f
}

// SnapshotFromLevel captures the dynamic planet state of lvl.
func SnapshotFromLevel(lvl *game.Level) *Snapshot {
	s := &Snapshot{Planets: make([]PlanetDynamic, len(lvl.Planets))}
	for i := range lvl.Planets {
		p := &lvl.Planets[i]
		s.Planets[i] = PlanetDynamic{Fleet: p.Fleet, Owner: p.Owner, Claimant: p.Claimant}
	}
	return s
}

// EncodeFull serializes a Full packet. Fails only when a count overflows
// its u32 wire field; no partial buffer is ever returned.
func EncodeFull(f *Full) ([]byte, error) {
	if uint64(len(f.Factions)) > math.MaxUint32 ||
		uint64(len(f.Planets)) > math.MaxUint32 ||
		uint64(len(f.Ships)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}
	size := fullHeaderSize + len(f.Factions)*factionSize +
		len(f.Planets)*planetSize + len(f.Ships)*shipSize
	buf := make([]byte, 0, size)
	buf = append(buf, TagFull)
	buf = putF32(buf, f.Width)
	buf = putF32(buf, f.Height)
	buf = putU32(buf, uint32(len(f.Factions)))
	buf = putU32(buf, uint32(len(f.Planets)))
	buf = putU32(buf, uint32(len(f.Ships)))
	for i := range f.Factions {
		fa := &f.Factions[i]
		buf = putI32(buf, fa.ID)
		for _, c := range fa.Color {
			buf = putF32(buf, c)
		}
	}
	for i := range f.Planets {
		p := &f.Planets[i]
		buf = putF32(buf, p.Pos[0])
		buf = putF32(buf, p.Pos[1])
		buf = putF32(buf, p.MaxCap)
		buf = putF32(buf, p.Fleet)
		buf = putI32(buf, p.Owner)
		buf = putI32(buf, p.Claimant)
	}
	for i := range f.Ships {
		s := &f.Ships[i]
		buf = putF32(buf, s.Pos[0])
		buf = putF32(buf, s.Pos[1])
		buf = putF32(buf, s.Vel[0])
		buf = putF32(buf, s.Vel[1])
		buf = putI32(buf, s.Owner)
		buf = putI32(buf, s.Target)
	}
	return buf, nil
}

// DecodeFull parses a full-state packet.
func DecodeFull(buf []byte) (*Full, error) {
	if len(buf) < fullHeaderSize {
		return nil, ErrShort
	}
	if buf[0] != TagFull {
		return nil, ErrBadTag
	}
	r := reader{buf: buf, off: 1}
	width, height := r.f32(), r.f32()
	fc, pc, sc := r.u32(), r.u32(), r.u32()
	need := uint64(fullHeaderSize) + uint64(fc)*factionSize +
		uint64(pc)*planetSize + uint64(sc)*shipSize
	if uint64(len(buf)) < need {
		return nil, ErrShort
	}
	f := &Full{
		Width:    width,
		Height:   height,
		Factions: make([]FactionState, fc),
		Planets:  make([]PlanetState, pc),
		Ships:    make([]StarshipState, sc),
	}
	for i := range f.Factions {
		fa := &f.Factions[i]
		fa.ID = r.i32()
		for j := range fa.Color {
			fa.Color[j] = r.f32()
		}
	}
	for i := range f.Planets {
		p := &f.Planets[i]
		p.Pos[0], p.Pos[1] = r.f32(), r.f32()
		p.MaxCap, p.Fleet = r.f32(), r.f32()
		p.Owner, p.Claimant = r.i32(), r.i32()
	}
	for i := range f.Ships {
		s := &f.Ships[i]
		s.Pos[0], s.Pos[1] = r.f32(), r.f32()
		s.Vel[0], s.Vel[1] = r.f32(), r.f32()
		s.Owner, s.Target = r.i32(), r.i32()
	}
	return f, nil
}

// EncodeSnapshot serializes a Snapshot packet.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	if uint64(len(s.Planets)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}
	buf := make([]byte, 0, snapshotHeaderSize+len(s.Planets)*planetDynSize)
	buf = append(buf, TagSnapshot)
	buf = putU32(buf, uint32(len(s.Planets)))
	for i := range s.Planets {
		p := &s.Planets[i]
		buf = putF32(buf, p.Fleet)
		buf = putI32(buf, p.Owner)
		buf = putI32(buf, p.Claimant)
	}
	return buf, nil
}

// DecodeSnapshot parses a snapshot packet.
func DecodeSnapshot(buf []byte) (*Snapshot, error) {
	if len(buf) < snapshotHeaderSize {
		return nil, ErrShort
	}
	if buf[0] != TagSnapshot {
		return nil, ErrBadTag
	}
	r := reader{buf: buf, off: 1}
	pc := r.u32()
	if uint64(len(buf)) < uint64(snapshotHeaderSize)+uint64(pc)*planetDynSize {
		return nil, ErrShort
	}
	s := &Snapshot{Planets: make([]PlanetDynamic, pc)}
	for i := range s.Planets {
		p := &s.Planets[i]
		p.Fleet = r.f32()
		p.Owner, p.Claimant = r.i32(), r.i32()
	}
	return s, nil
}

// EncodeFleetLaunch serializes a launch announcement.
func EncodeFleetLaunch(fl *FleetLaunch) []byte {
	buf := make([]byte, 0, fleetLaunchSize)
	buf = append(buf, TagFleetLaunch)
	buf = putI32(buf, fl.Origin)
	buf = putI32(buf, fl.Dest)
	buf = putI32(buf, fl.Count)
	buf = putI32(buf, fl.Owner)
	buf = putU32(buf, fl.Seed)
	return buf
}

// DecodeFleetLaunch parses a launch announcement.
func DecodeFleetLaunch(buf []byte) (*FleetLaunch, error) {
	if len(buf) < fleetLaunchSize {
		return nil, ErrShort
	}
	if buf[0] != TagFleetLaunch {
		return nil, ErrBadTag
	}
	r := reader{buf: buf, off: 1}
	return &FleetLaunch{
		Origin: r.i32(),
		Dest:   r.i32(),
		Count:  r.i32(),
		Owner:  r.i32(),
		Seed:   r.u32(),
	}, nil
}

// EncodeMoveOrder serializes a move order. Fails only when the origin
// count overflows its u32 field.
func EncodeMoveOrder(mo *MoveOrder) ([]byte, error) {
	if uint64(len(mo.Origins)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}
	buf := make([]byte, 0, moveOrderHeaderSize+len(mo.Origins)*4)
	buf = append(buf, TagMoveOrder)
	buf = putI32(buf, mo.Dest)
	buf = putU32(buf, uint32(len(mo.Origins)))
	for _, o := range mo.Origins {
		buf = putI32(buf, o)
	}
	return buf, nil
}

// DecodeMoveOrder parses a move order.
func DecodeMoveOrder(buf []byte) (*MoveOrder, error) {
	if len(buf) < moveOrderHeaderSize {
		return nil, ErrShort
	}
	if buf[0] != TagMoveOrder {
		return nil, ErrBadTag
	}
	r := reader{buf: buf, off: 1}
	dest := r.i32()
	oc := r.u32()
	if uint64(len(buf)) < uint64(moveOrderHeaderSize)+uint64(oc)*4 {
		return nil, ErrShort
	}
	mo := &MoveOrder{Dest: dest, Origins: make([]int32, oc)}
	for i := range mo.Origins {
		mo.Origins[i] = r.i32()
	}
	return mo, nil
}

// EncodeAssignment serializes a faction assignment.
func EncodeAssignment(a *Assignment) []byte {
	buf := make([]byte, 0, assignmentSize)
	buf = append(buf, TagAssignment)
	buf = putI32(buf, a.Faction)
	return buf
}

// DecodeAssignment parses a faction assignment.
func DecodeAssignment(buf []byte) (*Assignment, error) {
	if len(buf) < assignmentSize {
		return nil, ErrShort
	}
	if buf[0] != TagAssignment {
		return nil, ErrBadTag
	}
	r := reader{buf: buf, off: 1}
	return &Assignment{Faction: r.i32()}, nil
}
