package main

import "math"

const (
	DroneWanderStep     = 220.0 // how far ahead a wander waypoint is placed
	DroneRetargetMin    = 1.5   // seconds between wander course changes
	DroneRetargetSpread = 2.5
)

// droneProfile tunes how a drone weighs its neighbors. Sense is capped in
// practice by the 3x3 neighborhood window the arena queries for it.
type droneProfile struct {
	Name      string
	Sense     float64 // awareness radius for the exact distance check
	FleeBias  float64 // weight on running from bigger orbs
	ChaseBias float64 // weight on hunting smaller orbs
	BoostAt   float64 // boost when a threat is closer than this
}

var droneProfiles = []droneProfile{
	{Name: "grazer", Sense: 120, FleeBias: 1.6, ChaseBias: 0.3, BoostAt: 70},
	{Name: "drifter", Sense: 150, FleeBias: 1.0, ChaseBias: 0.8, BoostAt: 50},
	{Name: "hunter", Sense: 180, FleeBias: 0.6, ChaseBias: 1.5, BoostAt: 35},
}

// Drone is an AI-driven orb. It only picks target points; the shared orb
// physics do the rest.
type Drone struct {
	*Orb
	profile    droneProfile
	wander     float64 // current wander heading, radians
	retargetIn float64 // seconds until the next wander course change
}

func NewDrone(id string, half float64) *Drone {
	p := droneProfiles[int(randFloat()*float64(len(droneProfiles)))%len(droneProfiles)]
	o := NewOrb(id, p.Name+"-"+GenerateID(2), half)
	o.Bot = true
	return &Drone{
		Orb:     o,
		profile: p,
		wander:  randFloat() * 2 * math.Pi,
	}
}

// Update steers the drone using the orbs the spatial index found near it.
// neighbors is a coarse candidate set; everything is re-checked against the
// profile's sense radius before it influences steering.
func (d *Drone) Update(dt float64, neighbors []*Orb) {
	d.retargetIn -= dt

	var fx, fz float64 // accumulated flee direction
	var prey *Orb
	preyD2 := math.MaxFloat64
	threatD2 := math.MaxFloat64
	sense2 := d.profile.Sense * d.profile.Sense

	for _, n := range neighbors {
		if n == d.Orb || !n.Alive {
			continue
		}
		dx := n.X - d.X
		dz := n.Z - d.Z
		d2 := dx*dx + dz*dz
		if d2 > sense2 {
			continue
		}
		if n.Radius >= d.Radius*SwallowRatio {
			// Threat. Push away, closer means stronger.
			w := d.profile.FleeBias / (d2 + 1)
			fx -= dx * w
			fz -= dz * w
			if d2 < threatD2 {
				threatD2 = d2
			}
		} else if d.Radius >= n.Radius*SwallowRatio && d2 < preyD2 {
			prey = n
			preyD2 = d2
		}
	}

	switch {
	case fx != 0 || fz != 0:
		// Run for a point well past sensing range. Cornered drones end up
		// pressed against the wall, which is fair.
		mag := math.Sqrt(fx*fx + fz*fz)
		d.TargetX = Clamp(d.X+fx/mag*d.profile.Sense*2, -d.half, d.half)
		d.TargetZ = Clamp(d.Z+fz/mag*d.profile.Sense*2, -d.half, d.half)
		d.Boosting = threatD2 < d.profile.BoostAt*d.profile.BoostAt
	case prey != nil:
		// Lead the chase a little toward where the prey is heading.
		lead := d.profile.ChaseBias * 0.2
		d.TargetX = prey.X + prey.VX*lead
		d.TargetZ = prey.Z + prey.VZ*lead
		d.Boosting = false
	default:
		d.Boosting = false
		if d.retargetIn <= 0 || Distance(d.X, d.Z, d.TargetX, d.TargetZ) < OrbStopRange*2 {
			d.wander += (randFloat()*2 - 1) * math.Pi / 2
			d.retargetIn = DroneRetargetMin + randFloat()*DroneRetargetSpread
			d.TargetX = Clamp(d.X+math.Cos(d.wander)*DroneWanderStep, -d.half, d.half)
			d.TargetZ = Clamp(d.Z+math.Sin(d.wander)*DroneWanderStep, -d.half, d.half)
		}
	}
}
