package main

// ArenaConfig holds the settings one arena is created with. The world is a
// square spanning [-WorldHalf, WorldHalf] on both axes, so coordinates go
// negative on the low side.
type ArenaConfig struct {
	WorldHalf   float64 // world extends this far from the origin on x and z
	MaxPlayers  int
	DroneCount  int
	PelletCount int

	// Spatial index tuning. Mobiles churn every tick and get the finer
	// subdivision; pellets are static between eats and stay coarse.
	MobileCellSize float64
	MobileSubdiv   int
	PelletCellSize float64
	PelletSubdiv   int
	CellCapacity   int // per-subcell container size hint
	QueryCapacity  int // query buffer size hint
}

// DefaultArenaConfig returns the standard arena settings.
func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{
		WorldHalf:      2000,
		MaxPlayers:     20,
		DroneCount:     12,
		PelletCount:    600,
		MobileCellSize: 64,
		MobileSubdiv:   4,
		PelletCellSize: 64,
		PelletSubdiv:   2,
		CellCapacity:   16,
		QueryCapacity:  128,
	}
}
