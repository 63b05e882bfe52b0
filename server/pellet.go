package main

import "math"

const (
	FeastRadius  = 180.0 // pellets respawn bunched inside this circle
	FeastBias    = 0.35  // chance an eaten pellet respawns at the feast
	FeastRefresh = 20.0  // seconds between feast relocations
)

// Pellet is a food dot. Pellets never move on their own; eating one
// relocates it, so an arena's pellet population stays constant.
type Pellet struct {
	ID string
	X  float64
	Z  float64
}

// Position reports the pellet's location for spatial indexing.
func (p *Pellet) Position() (float64, float64) { return p.X, p.Z }

func (p *Pellet) ToState() PelletState {
	return PelletState{ID: p.ID, X: round1(p.X), Z: round1(p.Z)}
}

// scatterPellet drops p uniformly in the world square, with a small margin
// so the border cells are not half wasted.
func scatterPellet(p *Pellet, half float64) {
	p.X = (randFloat()*2 - 1) * half * 0.98
	p.Z = (randFloat()*2 - 1) * half * 0.98
}

// feastPellet drops p inside the feast circle centered at (fx, fz). The
// sqrt keeps the distribution uniform over the disk instead of piling up
// at the center.
func feastPellet(p *Pellet, half, fx, fz float64) {
	a := randFloat() * 2 * math.Pi
	r := math.Sqrt(randFloat()) * FeastRadius
	p.X = Clamp(fx+math.Cos(a)*r, -half, half)
	p.Z = Clamp(fz+math.Sin(a)*r, -half, half)
}
