package game

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"lukechampine.com/blake3"
)

const (
	// minShipCapacity is the floor of the starship storage doubling policy.
	minShipCapacity = 16
	// maxPlaceTries bounds rejection sampling during worldgen.
	maxPlaceTries = 200
	// planetMargin keeps generated planets apart and off the world edge.
	planetMargin = 24.0

	spawnRingGap = 4.0  // px between a planet rim and its launched ships
	spawnSpeed   = 40.0 // px/s initial outward speed of launched ships
)

// factionPalette supplies default colors at generation time; the lobby may
// overwrite them.
var factionPalette = [][4]float32{
	{0.90, 0.25, 0.21, 1}, // red
	{0.26, 0.52, 0.96, 1}, // blue
	{0.30, 0.80, 0.36, 1}, // green
	{0.98, 0.75, 0.18, 1}, // yellow
	{0.67, 0.36, 0.89, 1}, // purple
	{0.22, 0.80, 0.79, 1}, // teal
	{0.96, 0.49, 0.19, 1}, // orange
	{0.91, 0.38, 0.72, 1}, // pink
}

// Level owns all per-match entity storage. Faction and planet arrays are
// fixed for a match and their indices are the identities packets use;
// starship storage grows by doubling and is reordered freely by
// swap-removal.
type Level struct {
	Width  float32
	Height float32

	Factions []Faction
	Planets  []Planet
	Ships    []Starship // managed by SpawnStarship/RemoveStarship only
}

// Configure (re)allocates all entity storage for a match, discarding any
// previous state. Factions get sequential ids; planets start neutral.
func (l *Level) Configure(factionCount, planetCount, shipCapacity int) error {
	if factionCount < 0 || planetCount < 0 || shipCapacity < 0 {
		return fmt.Errorf("configure: negative count (%d factions, %d planets, %d ships)",
			factionCount, planetCount, shipCapacity)
	}
	if shipCapacity < minShipCapacity {
		shipCapacity = minShipCapacity
	}
	l.Factions = make([]Faction, factionCount)
	l.Planets = make([]Planet, planetCount)
	l.Ships = make([]Starship, 0, shipCapacity)
	for i := range l.Factions {
		l.Factions[i] = Faction{ID: int32(i), Team: NoTeam, Group: NoGroup}
	}
	for i := range l.Planets {
		l.Planets[i] = Planet{Owner: NoFaction, Claimant: NoFaction}
	}
	return nil
}

// SpawnStarship adds a ship, growing storage by doubling (floor 16) when
// full. The returned pointer is valid only until the next spawn or
// removal; never keep it across a tick boundary.
func (l *Level) SpawnStarship(pos, vel Vec2, owner, target int32) *Starship {
	if len(l.Ships) == cap(l.Ships) {
		next := cap(l.Ships) * 2
		if next < minShipCapacity {
			next = minShipCapacity
		}
		grown := make([]Starship, len(l.Ships), next)
		copy(grown, l.Ships)
		l.Ships = grown
	}
	l.Ships = append(l.Ships, Starship{
		Pos:       pos,
		Vel:       vel,
		Owner:     owner,
		Target:    target,
		TrailTime: TrailInterval,
	})
	return &l.Ships[len(l.Ships)-1]
}

// RemoveStarship swap-removes the ship at index i. Order is not
// preserved; a sweep that removes must re-inspect the same index, which
// now holds the former last ship.
func (l *Level) RemoveStarship(i int) {
	last := len(l.Ships) - 1
	l.Ships[i] = l.Ships[last]
	l.Ships = l.Ships[:last]
}

// Update advances the simulation one fixed step. Planets regenerate
// first, then ships fly and arrivals resolve; the order is load-bearing
// because garrison decay and same-tick arrivals interact.
func (l *Level) Update(dt float32) {
	for i := range l.Planets {
		l.Planets[i].Regenerate(dt)
	}
	for i := 0; i < len(l.Ships); {
		s := &l.Ships[i]
		var target *Planet
		if s.Target >= 0 && int(s.Target) < len(l.Planets) {
			target = &l.Planets[s.Target]
		}
		s.Update(dt, target)
		if target != nil && s.HitsTarget(target) {
			target.ReceiveShip(s.Owner)
			l.RemoveStarship(i)
			continue // the swapped-in ship now occupies i
		}
		i++
	}
}

// SendFleet converts origin's garrison into starships aimed at dest,
// placed on an evenly spaced ring. Deterministic for a given rng state.
// Returns the number of ships spawned; zero means the launch was refused
// (unowned origin, self-target, bad index, or an empty garrison).
func (l *Level) SendFleet(origin, dest int, rng *SpawnRNG) int {
	if origin == dest || origin < 0 || dest < 0 ||
		origin >= len(l.Planets) || dest >= len(l.Planets) {
		return 0
	}
	from := &l.Planets[origin]
	if !from.Owned() {
		return 0
	}
	count := int(math.Round(float64(from.Fleet)))
	if count <= 0 {
		return 0
	}
	from.Fleet = 0
	l.spawnRing(origin, dest, from.Owner, count, rng)
	return count
}

// ReplayLaunch reproduces a fleet launch announced by a peer: the origin
// garrison empties and count ships spawn exactly as the announcing side
// spawned them, given the same rng state.
func (l *Level) ReplayLaunch(origin, dest int, owner int32, count int, rng *SpawnRNG) {
	if origin == dest || origin < 0 || dest < 0 ||
		origin >= len(l.Planets) || dest >= len(l.Planets) || count <= 0 {
		return
	}
	l.Planets[origin].Fleet = 0
	l.spawnRing(origin, dest, owner, count, rng)
}

func (l *Level) spawnRing(origin, dest int, owner int32, count int, rng *SpawnRNG) {
	from := &l.Planets[origin]
	radius := from.OuterRadius() + ShipRadius + spawnRingGap
	phase := rng.Float() * 2 * math.Pi
	for i := 0; i < count; i++ {
		angle := phase + 2*math.Pi*float32(i)/float32(count)
		dir := Vec2{cosf(angle), sinf(angle)}
		l.SpawnStarship(from.Pos.Add(dir.Scale(radius)), dir.Scale(spawnSpeed), owner, int32(dest))
	}
}

// FactionByID resolves a wire faction id, nil when unknown.
func (l *Level) FactionByID(id int32) *Faction {
	if id == NoFaction {
		return nil
	}
	for i := range l.Factions {
		if l.Factions[i].ID == id {
			return &l.Factions[i]
		}
	}
	return nil
}

// Winner returns the id of a faction whose side holds every owned planet
// and every ship in flight, or NoFaction while the match is undecided.
func (l *Level) Winner() int32 {
	leader := NoFaction
	for i := range l.Planets {
		o := l.Planets[i].Owner
		if o == NoFaction {
			continue
		}
		if leader == NoFaction {
			leader = o
			continue
		}
		if !l.sameSide(leader, o) {
			return NoFaction
		}
	}
	for i := range l.Ships {
		o := l.Ships[i].Owner
		if o == NoFaction {
			continue
		}
		if leader == NoFaction {
			leader = o
			continue
		}
		if !l.sameSide(leader, o) {
			return NoFaction
		}
	}
	return leader
}

func (l *Level) sameSide(a, b int32) bool {
	fa, fb := l.FactionByID(a), l.FactionByID(b)
	if fa == nil || fb == nil {
		return a == b
	}
	return fa.SameSide(fb)
}

// GenConfig drives worldgen.
type GenConfig struct {
	FactionCount int
	PlanetCount  int
	Width        float32
	Height       float32
	MinCap       float32
	MaxCap       float32
	MapName      string // seeds generation; same name, same map
	Seed         uint64 // explicit seed, overrides MapName when nonzero
}

// DeriveSeed hashes a map name into a worldgen seed, so "same map name"
// means the same map on every host.
func DeriveSeed(mapName string) uint64 {
	sum := blake3.Sum256([]byte("lyw-map:" + mapName))
	return binary.LittleEndian.Uint64(sum[:8])
}

// Generate builds a fresh match: rejection-sampled non-overlapping planet
// placement, random capacities, and one fully garrisoned home world per
// faction.
func (l *Level) Generate(cfg GenConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.MinCap <= 0 {
		cfg.MinCap = 5
	}
	if cfg.MaxCap < cfg.MinCap {
		cfg.MaxCap = cfg.MinCap + 15
	}
	if cfg.PlanetCount < cfg.FactionCount {
		return fmt.Errorf("generate: %d planets cannot seat %d factions",
			cfg.PlanetCount, cfg.FactionCount)
	}
	if err := l.Configure(cfg.FactionCount, cfg.PlanetCount, minShipCapacity); err != nil {
		return err
	}
	l.Width, l.Height = cfg.Width, cfg.Height

	seed := cfg.Seed
	if seed == 0 {
		seed = DeriveSeed(cfg.MapName)
	}
	rng := rand.New(rand.NewSource(int64(seed)))

	for i := range l.Planets {
		p := &l.Planets[i]
		p.MaxCap = float32(math.Round(float64(cfg.MinCap) +
			rng.Float64()*float64(cfg.MaxCap-cfg.MinCap)))
		margin := planetMargin + p.OuterRadius()
		spanX, spanY := cfg.Width-2*margin, cfg.Height-2*margin
		if spanX <= 0 || spanY <= 0 {
			return fmt.Errorf("generate: %gx%g world cannot fit a planet of rim radius %g",
				cfg.Width, cfg.Height, p.OuterRadius())
		}
		placed := false
		for try := 0; try < maxPlaceTries; try++ {
			pos := Vec2{
				X: margin + rng.Float32()*spanX,
				Y: margin + rng.Float32()*spanY,
			}
			if l.clearOf(pos, p.OuterRadius(), i) {
				p.Pos = pos
				placed = true
				break
			}
		}
		if !placed {
			return fmt.Errorf("generate: no room for planet %d of %d", i, cfg.PlanetCount)
		}
	}

	for i := range l.Factions {
		f := &l.Factions[i]
		f.Color = factionPalette[i%len(factionPalette)]
		home := &l.Planets[i]
		home.Owner = f.ID
		home.Claimant = NoFaction
		home.Fleet = home.MaxCap
	}
	return nil
}

// clearOf reports whether pos with the given radius overlaps none of the
// first n placed planets.
func (l *Level) clearOf(pos Vec2, radius float32, n int) bool {
	for i := 0; i < n; i++ {
		p := &l.Planets[i]
		if Dist(pos, p.Pos) < radius+p.OuterRadius()+planetMargin {
			return false
		}
	}
	return true
}
