package game

// Planet tuning.
const (
	PlanetRadiusBase   = 14.0 // px, rim radius of a zero-capacity planet
	PlanetRadiusPerCap = 1.2  // px of rim radius per ship of capacity
	PlanetGrowthRate   = 0.5  // ships/s an owned garrison grows (or overflow decays)
)

// Planet is a capturable world. Owner and Claimant hold faction ids, never
// both at once: a planet is neutral (neither), claimed (claimant only), or
// owned (owner only).
type Planet struct {
	Pos      Vec2
	MaxCap   float32
	Fleet    float32
	Owner    int32
	Claimant int32
}

// Neutral reports no owner and no claimant.
func (p *Planet) Neutral() bool { return p.Owner == NoFaction && p.Claimant == NoFaction }

// Owned reports whether some faction holds the planet.
func (p *Planet) Owned() bool { return p.Owner != NoFaction }

// OuterRadius is the rim radius, scaled by capacity.
func (p *Planet) OuterRadius() float32 {
	return PlanetRadiusBase + PlanetRadiusPerCap*p.MaxCap
}

// InnerRadius is the garrison disc radius. It exceeds OuterRadius while an
// owned planet is over capacity.
func (p *Planet) InnerRadius() float32 {
	if p.MaxCap <= 0 {
		return 0
	}
	r := p.OuterRadius() * p.Fleet / p.MaxCap
	if r < 0 {
		return 0
	}
	return r
}

// CollisionRadius gates starship arrival: the larger of the two radii, so
// an overflowing garrison catches ships at its swollen edge. This value is
// gameplay, not cosmetics; peers must compute it identically.
func (p *Planet) CollisionRadius() float32 {
	outer, inner := p.OuterRadius(), p.InnerRadius()
	if inner > outer {
		return inner
	}
	return outer
}

// Regenerate advances the garrison one tick, independent of combat.
// Neutral planets stay empty, claimed planets only clamp, owned planets
// move linearly toward capacity from either side.
func (p *Planet) Regenerate(dt float32) {
	switch {
	case p.Neutral():
		p.Fleet = 0
	case !p.Owned():
		if p.Fleet < 0 {
			p.Fleet = 0
		}
		if p.Fleet > p.MaxCap {
			p.Fleet = p.MaxCap
		}
	default:
		step := PlanetGrowthRate * dt
		if p.Fleet < p.MaxCap {
			p.Fleet += step
			if p.Fleet > p.MaxCap {
				p.Fleet = p.MaxCap
			}
		} else if p.Fleet > p.MaxCap {
			p.Fleet -= step
			if p.Fleet < p.MaxCap {
				p.Fleet = p.MaxCap
			}
		}
		if p.Fleet < 0 {
			p.Fleet = 0
		}
	}
}

// ReceiveShip resolves one arriving starship owned by attacker.
//
// An attacker that empties a claimed planet replaces the claimant outright;
// there is no partial credit. An attacker that drives an owned garrison
// negative conquers it, and the surplus below zero carries over as the new
// garrison, floored at one whole ship.
func (p *Planet) ReceiveShip(attacker int32) {
	if attacker == NoFaction {
		return
	}
	switch {
	case p.Owned():
		if attacker == p.Owner {
			// Reinforcement. No cap while owned; Regenerate decays overflow.
			p.Fleet++
			return
		}
		p.Fleet--
		if p.Fleet < 0 {
			p.Owner = attacker
			p.Fleet = -p.Fleet
			if p.Fleet < 1 {
				p.Fleet = 1
			}
		}
	case p.Claimant != NoFaction:
		if attacker == p.Claimant {
			p.Fleet++
			if p.Fleet >= p.MaxCap {
				p.Owner = p.Claimant
				p.Claimant = NoFaction
				p.Fleet = p.MaxCap
			}
			return
		}
		p.Fleet--
		if p.Fleet <= 0 {
			p.Claimant = attacker
			p.Fleet = 1
		}
	default:
		p.Claimant = attacker
		p.Fleet = 1
	}
}
