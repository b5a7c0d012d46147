package game

// Sentinels for "none". They double as the wire encoding of empty
// owner/claimant/team fields.
const (
	NoFaction int32 = -1
	NoTeam    int32 = -1
	NoGroup   int32 = -1
)

// Faction is one controllable side in a match. Identity is fixed once the
// level is configured; color and grouping may be adjusted by the lobby
// before the match starts.
type Faction struct {
	ID    int32
	Color [4]float32 // RGBA, 0..1
	Team  int32      // NoTeam or a team number
	Group int32      // NoGroup or a shared-control group
}

// SameSide reports whether two factions count as allies for the win
// check: identical, on the same team, or in the same control group.
func (f *Faction) SameSide(o *Faction) bool {
	if f.ID == o.ID {
		return true
	}
	if f.Team != NoTeam && f.Team == o.Team {
		return true
	}
	return f.Group != NoGroup && f.Group == o.Group
}
