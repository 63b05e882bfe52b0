package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"time"

	spatialhash "github.com/rybakatya/SpatialHash"
)

const (
	OrbStartRadius = 12.0
	OrbMaxRadius   = 220.0
	OrbBaseSpeed   = 260.0 // units/sec at start radius
	OrbSpeedExp    = 0.4   // speed falls off as (start/radius)^exp
	OrbAccel       = 900.0
	OrbFriction    = 2.5
	OrbBoostMul    = 1.55
	OrbStopRange   = 4.0 // stop steering when the target is this close

	PelletArea  = 14.0 // area gained per pellet
	PelletScore = 1

	SwallowRatio = 1.15 // eater must be this much larger by radius
	SwallowDepth = 0.4  // victim center must be inside eater radius minus this fraction of victim radius
	SwallowYield = 0.75 // fraction of the victim's area the eater keeps
	SwallowScore = 10

	RespawnDelay = 3.0 // seconds
)

// Orb is the mobile body shared by players and drones. Players steer it via
// client input, drones via their own targeting; the physics are the same.
type Orb struct {
	ID       string
	Name     string
	X, Z     float64
	VX, VZ   float64
	TargetX  float64
	TargetZ  float64
	Boosting bool
	Radius   float64
	Score    int
	Alive    bool
	Bot      bool
	RespawnT float64

	// Cell is the coarse cell the orb was last indexed under. The tick
	// removes at this key before re-inserting at the new position.
	Cell spatialhash.CellKey

	half float64 // world half extent, for clamping

	// Per-run counters, reset on respawn.
	Pellets   int
	Swallowed int
	SpawnedAt time.Time

	AuthPlayerID int64 // 0 for guests and drones
}

func NewOrb(id, name string, half float64) *Orb {
	o := &Orb{
		ID:        id,
		Name:      name,
		half:      half,
		Radius:    OrbStartRadius,
		Alive:     true,
		SpawnedAt: time.Now(),
	}
	o.X = (randFloat()*2 - 1) * half * 0.9
	o.Z = (randFloat()*2 - 1) * half * 0.9
	o.TargetX = o.X
	o.TargetZ = o.Z
	return o
}

// Position reports the orb's location for spatial indexing.
func (o *Orb) Position() (float64, float64) { return o.X, o.Z }

// MaxSpeed is the orb's current speed cap. Growing makes it slower, boost
// trades nothing for a flat bump (unlike the classic mass-shed rule).
func (o *Orb) MaxSpeed() float64 {
	s := OrbBaseSpeed * math.Pow(OrbStartRadius/o.Radius, OrbSpeedExp)
	if o.Boosting {
		s *= OrbBoostMul
	}
	return s
}

// Update advances the orb one tick: accelerate toward the target point,
// apply friction, cap speed, move, clamp to the world square.
func (o *Orb) Update(dt float64) {
	dx := o.TargetX - o.X
	dz := o.TargetZ - o.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist > OrbStopRange {
		o.VX += dx / dist * OrbAccel * dt
		o.VZ += dz / dist * OrbAccel * dt
	}

	o.VX -= o.VX * OrbFriction * dt
	o.VZ -= o.VZ * OrbFriction * dt

	max := o.MaxSpeed()
	speed := math.Sqrt(o.VX*o.VX + o.VZ*o.VZ)
	if speed > max {
		o.VX *= max / speed
		o.VZ *= max / speed
	}

	o.X = Clamp(o.X+o.VX*dt, -o.half, o.half)
	o.Z = Clamp(o.Z+o.VZ*dt, -o.half, o.half)
}

// Grow adds area to the orb. Radius scales with the square root, so each
// doubling takes four times the food.
func (o *Orb) Grow(area float64) {
	r := math.Sqrt(o.Radius*o.Radius + area)
	if r > OrbMaxRadius {
		r = OrbMaxRadius
	}
	o.Radius = r
}

// Respawn resets the orb for a fresh run at a random spot.
func (o *Orb) Respawn() {
	o.X = (randFloat()*2 - 1) * o.half * 0.9
	o.Z = (randFloat()*2 - 1) * o.half * 0.9
	o.VX, o.VZ = 0, 0
	o.TargetX, o.TargetZ = o.X, o.Z
	o.Radius = OrbStartRadius
	o.Score = 0
	o.Pellets = 0
	o.Swallowed = 0
	o.Boosting = false
	o.Alive = true
	o.RespawnT = 0
	o.SpawnedAt = time.Now()
}

func (o *Orb) ToState() OrbState {
	return OrbState{
		ID:    o.ID,
		Name:  o.Name,
		X:     round1(o.X),
		Z:     round1(o.Z),
		R:     round1(o.Radius),
		Score: o.Score,
		Bot:   o.Bot,
		Alive: o.Alive,
	}
}

var rngState uint64

func init() {
	var b [8]byte
	crand.Read(b[:])
	rngState = binary.LittleEndian.Uint64(b[:])
	if rngState == 0 {
		rngState = 0x9e3779b97f4a7c15
	}
}

// xorshift64; good enough for gameplay jitter, not crypto.
func randFloat() float64 {
	rngState ^= rngState << 13
	rngState ^= rngState >> 7
	rngState ^= rngState << 17
	return float64(rngState>>11) / (1 << 53)
}
