package main

import "testing"

// testDrone builds a drone with a fixed profile so steering assertions do
// not depend on the random profile draw.
func testDrone(profile int, half float64) *Drone {
	o := NewOrb("d1", "drone", half)
	o.Bot = true
	return &Drone{Orb: o, profile: droneProfiles[profile]}
}

func TestNewDroneIsBot(t *testing.T) {
	d := NewDrone("bot_1", 500)
	if !d.Bot {
		t.Error("drone orb should be flagged as a bot")
	}
	if !d.Alive {
		t.Error("drone should spawn alive")
	}
	if d.profile.Sense <= 0 {
		t.Error("drone should carry a profile")
	}
}

func TestDroneFleesFromBiggerOrb(t *testing.T) {
	d := testDrone(0, 2000)
	d.X, d.Z = 1000, 1000

	threat := NewOrb("big", "threat", 2000)
	threat.X, threat.Z = 1060, 1000
	threat.Radius = 40 // well above the swallow ratio over a fresh drone

	d.Update(1.0/30.0, []*Orb{threat})

	if d.TargetX >= d.X {
		t.Errorf("drone should flee away from the threat, target X=%f drone X=%f",
			d.TargetX, d.X)
	}
}

func TestDroneChasesSmallerOrb(t *testing.T) {
	d := testDrone(2, 2000) // hunter
	d.X, d.Z = 1000, 1000
	d.Radius = 40

	prey := NewOrb("small", "prey", 2000)
	prey.X, prey.Z = 1060, 1000

	d.Update(1.0/30.0, []*Orb{prey})

	if d.TargetX <= d.X {
		t.Errorf("drone should chase toward the prey, target X=%f drone X=%f",
			d.TargetX, d.X)
	}
	if d.Boosting {
		t.Error("chasing should not burn boost")
	}
}

func TestDroneBoostsWhenThreatClose(t *testing.T) {
	d := testDrone(0, 2000) // grazer boosts inside 70 units
	d.X, d.Z = 1000, 1000

	threat := NewOrb("big", "threat", 2000)
	threat.X, threat.Z = 1040, 1000
	threat.Radius = 40

	d.Update(1.0/30.0, []*Orb{threat})

	if !d.Boosting {
		t.Error("drone should boost with a threat inside its panic range")
	}
}

func TestDroneIgnoresOrbsBeyondSense(t *testing.T) {
	d := testDrone(0, 2000) // grazer senses 120 units
	d.X, d.Z = 1000, 1000
	d.TargetX, d.TargetZ = 1050, 1000
	d.retargetIn = 100 // keep the wander branch from retargeting

	far := NewOrb("big", "threat", 2000)
	far.X, far.Z = 1200, 1000
	far.Radius = 40

	d.Update(1.0/30.0, []*Orb{far})

	if d.TargetX != 1050 || d.TargetZ != 1000 {
		t.Errorf("out-of-range orb changed the target to (%f, %f)", d.TargetX, d.TargetZ)
	}
}

func TestDroneIgnoresDeadOrbs(t *testing.T) {
	d := testDrone(0, 2000)
	d.X, d.Z = 1000, 1000
	d.TargetX, d.TargetZ = 1050, 1000
	d.retargetIn = 100

	dead := NewOrb("big", "threat", 2000)
	dead.X, dead.Z = 1020, 1000
	dead.Radius = 40
	dead.Alive = false

	d.Update(1.0/30.0, []*Orb{dead})

	if d.TargetX != 1050 || d.TargetZ != 1000 {
		t.Errorf("dead orb changed the target to (%f, %f)", d.TargetX, d.TargetZ)
	}
}

func TestDroneWandersWhenAlone(t *testing.T) {
	d := testDrone(1, 2000)
	d.X, d.Z = 1000, 1000

	startX, startZ := d.X, d.Z
	for i := 0; i < 120; i++ {
		d.Update(1.0/30.0, nil)
		d.Orb.Update(1.0 / 30.0)
	}

	if Distance(startX, startZ, d.X, d.Z) < 10 {
		t.Errorf("drone should wander when alone, only moved %f units",
			Distance(startX, startZ, d.X, d.Z))
	}
}
