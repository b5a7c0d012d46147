package game

// Starship tuning.
const (
	ShipAccel     = 260.0 // px/s², homing acceleration toward the target
	ShipMaxSpeed  = 140.0 // px/s
	ShipRadius    = 3.0   // px
	TrailInterval = 0.05  // s between trail emissions
)

// NoTarget marks a starship with nothing to home on.
const NoTarget int32 = -1

// Starship is one ship in flight. Owner is a faction id, Target a planet
// index into the level's planet array; both are wire identities, never
// pointers.
type Starship struct {
	Pos       Vec2
	Vel       Vec2
	Owner     int32
	Target    int32
	TrailTime float32 // countdown to the next trail emission
}

// Update advances kinematics one tick: accelerate toward the target,
// clamp speed, move. The return value reports whether a trail particle is
// due this tick; emission is client-local and costs no bandwidth.
func (s *Starship) Update(dt float32, target *Planet) bool {
	if target != nil {
		dir := target.Pos.Sub(s.Pos).Normalize()
		s.Vel = s.Vel.Add(dir.Scale(ShipAccel * dt)).ClampLen(ShipMaxSpeed)
	}
	s.Pos = s.Pos.Add(s.Vel.Scale(dt))

	s.TrailTime -= dt
	if s.TrailTime <= 0 {
		s.TrailTime += TrailInterval
		return true
	}
	return false
}

// HitsTarget reports whether the ship has reached target's capture zone.
func (s *Starship) HitsTarget(target *Planet) bool {
	return Dist(s.Pos, target.Pos) <= target.CollisionRadius()+ShipRadius
}
