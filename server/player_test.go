package main

import (
	"math"
	"testing"
)

func TestNewOrb(t *testing.T) {
	o := NewOrb("o1", "Tester", 500)
	if o.ID != "o1" {
		t.Errorf("expected ID o1, got %s", o.ID)
	}
	if o.Name != "Tester" {
		t.Errorf("expected name Tester, got %s", o.Name)
	}
	if o.Radius != OrbStartRadius {
		t.Errorf("expected start radius %v, got %v", OrbStartRadius, o.Radius)
	}
	if !o.Alive {
		t.Error("expected orb to be alive")
	}
	if o.X < -500 || o.X > 500 || o.Z < -500 || o.Z > 500 {
		t.Errorf("spawn (%f, %f) outside the world square", o.X, o.Z)
	}
	if o.TargetX != o.X || o.TargetZ != o.Z {
		t.Error("a fresh orb should target its own position")
	}
}

func TestOrbUpdateSteersTowardTarget(t *testing.T) {
	o := NewOrb("o1", "t", 2000)
	o.X, o.Z = 100, 100
	o.TargetX, o.TargetZ = 300, 100

	o.Update(1.0 / 30.0)

	if o.VX <= 0 {
		t.Errorf("expected positive X velocity toward target, got %f", o.VX)
	}
	if o.X <= 100 {
		t.Errorf("expected orb to move right, X=%f", o.X)
	}
	if o.Z != 100 {
		t.Errorf("expected no Z drift, Z=%f", o.Z)
	}
}

func TestOrbUpdateStopsNearTarget(t *testing.T) {
	o := NewOrb("o1", "t", 2000)
	o.X, o.Z = 100, 100
	o.TargetX, o.TargetZ = 100, 100

	o.Update(1.0 / 30.0)

	if o.VX != 0 || o.VZ != 0 {
		t.Errorf("orb at its target should not accelerate, velocity (%f, %f)", o.VX, o.VZ)
	}
}

func TestOrbSpeedCap(t *testing.T) {
	o := NewOrb("o1", "t", 1e6)
	o.X, o.Z = 0, 0
	o.TargetX, o.TargetZ = 0, 0
	o.VX, o.VZ = 10000, 0

	o.Update(1.0 / 30.0)

	speed := math.Sqrt(o.VX*o.VX + o.VZ*o.VZ)
	if speed > o.MaxSpeed()+1e-9 {
		t.Errorf("speed %f exceeds cap %f", speed, o.MaxSpeed())
	}
}

func TestOrbMaxSpeedFallsWithSize(t *testing.T) {
	small := NewOrb("s", "t", 500)
	big := NewOrb("b", "t", 500)
	big.Radius = OrbStartRadius * 4

	if big.MaxSpeed() >= small.MaxSpeed() {
		t.Errorf("bigger orb should be slower: big %f, small %f",
			big.MaxSpeed(), small.MaxSpeed())
	}

	base := small.MaxSpeed()
	small.Boosting = true
	if small.MaxSpeed() <= base {
		t.Error("boost should raise the speed cap")
	}
}

func TestOrbGrow(t *testing.T) {
	o := NewOrb("o1", "t", 500)
	before := o.Radius
	o.Grow(PelletArea)
	want := math.Sqrt(before*before + PelletArea)
	if math.Abs(o.Radius-want) > 1e-9 {
		t.Errorf("expected radius %f after growing, got %f", want, o.Radius)
	}

	o.Grow(1e9)
	if o.Radius != OrbMaxRadius {
		t.Errorf("radius should cap at %v, got %f", OrbMaxRadius, o.Radius)
	}
}

func TestOrbClampedToWorld(t *testing.T) {
	o := NewOrb("o1", "t", 100)
	o.X, o.Z = 99, 0
	o.TargetX, o.TargetZ = 99, 0
	o.VX = 10000

	o.Update(1.0 / 30.0)

	if o.X > 100 {
		t.Errorf("orb escaped the world square, X=%f", o.X)
	}
}

func TestOrbRespawn(t *testing.T) {
	o := NewOrb("o1", "t", 500)
	o.Alive = false
	o.Radius = 80
	o.Score = 42
	o.Pellets = 7
	o.Swallowed = 3
	o.VX, o.VZ = 50, 50
	o.Boosting = true
	o.RespawnT = 1

	o.Respawn()

	if !o.Alive {
		t.Error("expected orb to be alive after respawn")
	}
	if o.Radius != OrbStartRadius {
		t.Errorf("expected start radius, got %f", o.Radius)
	}
	if o.Score != 0 || o.Pellets != 0 || o.Swallowed != 0 {
		t.Error("run counters should reset on respawn")
	}
	if o.VX != 0 || o.VZ != 0 {
		t.Error("velocity should be zero after respawn")
	}
	if o.Boosting || o.RespawnT != 0 {
		t.Error("boost and respawn timer should clear")
	}
}

func TestOrbToState(t *testing.T) {
	o := NewOrb("o1", "Pilot", 500)
	o.X, o.Z = 1.234, -5.678
	o.Radius = 12.04
	o.Score = 9
	o.Bot = true

	s := o.ToState()
	if s.ID != "o1" || s.Name != "Pilot" || s.Score != 9 || !s.Bot || !s.Alive {
		t.Error("state field mismatch")
	}
	if s.X != 1.2 || s.Z != -5.7 {
		t.Errorf("expected rounded position (1.2, -5.7), got (%v, %v)", s.X, s.Z)
	}
	if s.R != 12.0 {
		t.Errorf("expected rounded radius 12.0, got %v", s.R)
	}
}

func TestOrbPosition(t *testing.T) {
	o := NewOrb("o1", "t", 500)
	o.X, o.Z = 3, 4
	x, z := o.Position()
	if x != 3 || z != 4 {
		t.Errorf("Position() = (%f, %f), expected (3, 4)", x, z)
	}
}
