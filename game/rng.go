package game

// SpawnRNG is the deterministic generator behind fleet-launch ring
// placement. Its 32-bit state travels inside the launch packet so every
// peer reproduces the spawn locally instead of receiving per-ship data.
// It must never be used for anything peers do not run in lockstep.
type SpawnRNG struct {
	state uint32
}

// NewSpawnRNG seeds a generator. Zero is remapped; xorshift fixes zero.
func NewSpawnRNG(seed uint32) *SpawnRNG {
	if seed == 0 {
		seed = 0x9e3779b9
	}
	return &SpawnRNG{state: seed}
}

// State returns the current state, suitable for the wire.
func (r *SpawnRNG) State() uint32 { return r.state }

// Next advances the xorshift32 state and returns it.
func (r *SpawnRNG) Next() uint32 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return r.state
}

// Float returns a float32 in [0, 1).
func (r *SpawnRNG) Float() float32 {
	return float32(r.Next()%(1<<24)) / (1 << 24)
}
