package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	spatialhash "github.com/rybakatya/SpatialHash"
	"github.com/vmihailenco/msgpack/v5"
)

const TickRate = 30

// tickInterval is a var so the -tick flag and tests can shorten it.
var tickInterval = time.Second / TickRate

// gaugeEvery is how many ticks pass between grid gauge pushes.
const gaugeEvery = TickRate * 5

// Broadcaster is the client-facing send surface the game needs. *Client
// implements it; tests substitute a mock.
type Broadcaster interface {
	SendJSON(v interface{})
	SendRaw(data []byte)
	SendBinary(data []byte)
}

// Game runs one arena: the orbs, the pellets and the two spatial indexes
// over them. All state is guarded by mu; the tick loop and the client
// handlers both go through it.
type Game struct {
	mu        sync.RWMutex
	sessionID string
	cfg       ArenaConfig

	players map[string]*Orb   // human orbs by player ID
	drones  map[string]*Drone // AI orbs by drone ID
	pellets []*Pellet

	mobiles    *spatialhash.Grid[*Orb]
	pelletGrid *spatialhash.Grid[*Pellet]

	clients map[string]Broadcaster

	// Scratch reused every tick so steady-state ticks stay allocation-free
	// like the index underneath.
	allOrbs      []*Orb
	orbBuf       []*Orb
	pelletBuf    []*Pellet
	stateOrbs    []OrbState
	statePellets []PelletState

	// The feast is a roaming hotspot eaten pellets respawn around.
	feastX, feastZ float64
	feastIn        float64

	tick     uint64
	stopCh   chan struct{}
	stopOnce sync.Once

	db        *DB
	analytics *Analytics
}

func NewGame(sessionID string, cfg ArenaConfig, db *DB, analytics *Analytics) (*Game, error) {
	mobiles, err := spatialhash.New[*Orb](cfg.MobileCellSize, cfg.MobileSubdiv, cfg.CellCapacity, cfg.QueryCapacity)
	if err != nil {
		return nil, fmt.Errorf("mobile grid: %w", err)
	}
	pelletGrid, err := spatialhash.New[*Pellet](cfg.PelletCellSize, cfg.PelletSubdiv, cfg.CellCapacity, cfg.QueryCapacity)
	if err != nil {
		return nil, fmt.Errorf("pellet grid: %w", err)
	}

	g := &Game{
		sessionID:  sessionID,
		cfg:        cfg,
		players:    make(map[string]*Orb),
		drones:     make(map[string]*Drone),
		mobiles:    mobiles,
		pelletGrid: pelletGrid,
		clients:    make(map[string]Broadcaster),
		feastIn:    FeastRefresh,
		stopCh:     make(chan struct{}),
		db:         db,
		analytics:  analytics,
	}
	g.feastX = (randFloat()*2 - 1) * cfg.WorldHalf * 0.8
	g.feastZ = (randFloat()*2 - 1) * cfg.WorldHalf * 0.8

	for i := 0; i < cfg.DroneCount; i++ {
		d := NewDrone("bot_"+GenerateID(4), cfg.WorldHalf)
		d.Cell = g.mobiles.Insert(d.Orb)
		g.drones[d.ID] = d
	}
	for i := 0; i < cfg.PelletCount; i++ {
		p := &Pellet{ID: "p" + strconv.Itoa(i)}
		scatterPellet(p, cfg.WorldHalf)
		g.pelletGrid.Insert(p)
		g.pellets = append(g.pellets, p)
	}
	return g, nil
}

// Run drives the tick loop until Stop is called.
func (g *Game) Run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stopCh:
			return
		}
	}
}

func (g *Game) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopCh)
		g.analytics.DropGridStats(g.sessionID)
	})
}

func (g *Game) WorldHalf() float64 { return g.cfg.WorldHalf }

// AddPlayer spawns an orb for a connecting player and starts routing
// snapshots to b. Returns nil when the arena is full.
func (g *Game) AddPlayer(id, name string, authPlayerID int64, b Broadcaster) *Orb {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= g.cfg.MaxPlayers {
		return nil
	}
	o := NewOrb(id, name, g.cfg.WorldHalf)
	o.AuthPlayerID = authPlayerID
	o.Cell = g.mobiles.Insert(o)
	g.players[id] = o
	g.clients[id] = b
	g.analytics.Track(EvtRunStart, authPlayerID, g.sessionID, map[string]interface{}{"name": name})
	return o
}

// RemovePlayer finalizes and drops a player. Safe to call for unknown IDs.
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.players[id]
	if !ok {
		return
	}
	if o.Alive {
		g.mobiles.RemoveAt(o.Cell, o)
		g.finishRun(o)
	}
	delete(g.players, id)
	delete(g.clients, id)
}

func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.players)
}

// HandleInput applies a steering update from a client.
func (g *Game) HandleInput(id string, in ClientInput) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.players[id]
	if !ok || !o.Alive {
		return
	}
	o.TargetX = Clamp(in.TX, -g.cfg.WorldHalf, g.cfg.WorldHalf)
	o.TargetZ = Clamp(in.TZ, -g.cfg.WorldHalf, g.cfg.WorldHalf)
	o.Boosting = in.Boost
}

// GridStats reports both indexes, for gauges and tests.
func (g *Game) GridStats() (mobiles, pellets spatialhash.Stats) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mobiles.Stats(), g.pelletGrid.Stats()
}

// update advances the arena one tick.
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	dt := 1.0 / TickRate
	g.tick++

	// Relocate the feast hotspot on its timer.
	g.feastIn -= dt
	if g.feastIn <= 0 {
		g.feastIn = FeastRefresh
		g.feastX = (randFloat()*2 - 1) * g.cfg.WorldHalf * 0.8
		g.feastZ = (randFloat()*2 - 1) * g.cfg.WorldHalf * 0.8
	}

	// Drone steering first, against last tick's index.
	for _, d := range g.drones {
		if !d.Alive {
			continue
		}
		g.orbBuf = g.mobiles.QueryNeighborhoodBuf(d.X, d.Z, g.orbBuf)
		d.Update(dt, g.orbBuf)
	}

	// Flatten both orb maps once; the passes below iterate this.
	g.allOrbs = g.allOrbs[:0]
	for _, o := range g.players {
		g.allOrbs = append(g.allOrbs, o)
	}
	for _, d := range g.drones {
		g.allOrbs = append(g.allOrbs, d.Orb)
	}

	// Physics and reindex. Dead orbs sit out their respawn timer.
	for _, o := range g.allOrbs {
		if !o.Alive {
			o.RespawnT -= dt
			if o.RespawnT <= 0 {
				o.Respawn()
				o.Cell = g.mobiles.Insert(o)
			}
			continue
		}
		o.Update(dt)
		g.mobiles.RemoveAt(o.Cell, o)
		o.Cell = g.mobiles.Insert(o)
	}

	// Pellet eating. The query radius is the orb radius, so every hit is
	// already an exact one.
	for _, o := range g.allOrbs {
		if !o.Alive {
			continue
		}
		g.pelletBuf = g.pelletGrid.QueryCircleBuf(o.X, o.Z, o.Radius, g.pelletBuf)
		for _, p := range g.pelletBuf {
			g.pelletGrid.Remove(p)
			o.Grow(PelletArea)
			o.Score += PelletScore
			o.Pellets++
			g.respawnPellet(p)
		}
	}

	// Swallows. Candidates come from the mobile index; the engulf-depth
	// check needs the exact distance anyway.
	for _, o := range g.allOrbs {
		if !o.Alive {
			continue
		}
		g.orbBuf = g.mobiles.QueryCircleBuf(o.X, o.Z, o.Radius, g.orbBuf)
		for _, v := range g.orbBuf {
			if v == o || !v.Alive {
				continue
			}
			if o.Radius < v.Radius*SwallowRatio {
				continue
			}
			reach := o.Radius - v.Radius*SwallowDepth
			if reach <= 0 {
				continue
			}
			dx := v.X - o.X
			dz := v.Z - o.Z
			if dx*dx+dz*dz > reach*reach {
				continue
			}
			g.swallow(o, v)
		}
	}

	if g.tick%gaugeEvery == 0 {
		g.analytics.SetGridStats(g.sessionID, g.mobiles.Stats(), g.pelletGrid.Stats())
	}

	g.broadcastSnapshot()
}

// respawnPellet places an eaten pellet back into the world and the index.
func (g *Game) respawnPellet(p *Pellet) {
	if randFloat() < FeastBias {
		feastPellet(p, g.cfg.WorldHalf, g.feastX, g.feastZ)
	} else {
		scatterPellet(p, g.cfg.WorldHalf)
	}
	g.pelletGrid.Insert(p)
}

// swallow resolves eater engulfing victim. Caller holds g.mu.
func (g *Game) swallow(eater, victim *Orb) {
	victim.Alive = false
	victim.RespawnT = RespawnDelay
	g.mobiles.RemoveAt(victim.Cell, victim)

	eater.Grow(victim.Radius * victim.Radius * SwallowYield)
	eater.Score += SwallowScore + victim.Score/4
	eater.Swallowed++

	g.broadcastMsg(MsgEaten, EatenMsg{
		EaterID:    eater.ID,
		EaterName:  eater.Name,
		VictimID:   victim.ID,
		VictimName: victim.Name,
	})
	g.analytics.Track(EvtSwallow, eater.AuthPlayerID, g.sessionID, map[string]interface{}{
		"victim": victim.Name,
		"bot":    victim.Bot,
	})

	if !victim.Bot {
		if c, ok := g.clients[victim.ID]; ok {
			c.SendJSON(Envelope{T: MsgDeath, Data: DeathMsg{By: eater.Name, Score: victim.Score}})
		}
		g.finishRun(victim)
	}
}

// finishRun persists a completed run and hands out any achievements it
// unlocked. Caller holds g.mu.
func (g *Game) finishRun(o *Orb) {
	dur := time.Since(o.SpawnedAt).Seconds()
	g.analytics.Track(EvtRunEnd, o.AuthPlayerID, g.sessionID, map[string]interface{}{
		"score":   o.Score,
		"pellets": o.Pellets,
		"orbs":    o.Swallowed,
		"secs":    int(dur),
	})
	if g.db == nil || o.AuthPlayerID == 0 {
		return
	}
	if err := g.db.RecordRun(o.AuthPlayerID, o.Score, o.Pellets, o.Swallowed, dur); err != nil {
		log.Printf("game %s: record run for %d: %v", g.sessionID, o.AuthPlayerID, err)
		return
	}
	c, ok := g.clients[o.ID]
	for _, a := range CheckAchievements(g.db, o.AuthPlayerID, o.Score) {
		g.analytics.Track(EvtAchievement, o.AuthPlayerID, g.sessionID, map[string]interface{}{"id": a.ID})
		if ok {
			c.SendJSON(Envelope{T: MsgAward, Data: AwardMsg{ID: a.ID, Name: a.Name, Description: a.Description}})
		}
	}
}

// broadcastMsg sends one JSON control message to every client in the
// arena. Marshals once, pushes raw.
func (g *Game) broadcastMsg(t string, data interface{}) {
	raw, err := json.Marshal(Envelope{T: t, Data: data})
	if err != nil {
		log.Printf("game %s: marshal %s: %v", g.sessionID, t, err)
		return
	}
	for _, c := range g.clients {
		c.SendRaw(raw)
	}
}

// broadcastSnapshot ships the tick's state to every client as one msgpack
// binary frame.
func (g *Game) broadcastSnapshot() {
	if len(g.clients) == 0 {
		return
	}
	g.stateOrbs = g.stateOrbs[:0]
	for _, o := range g.players {
		g.stateOrbs = append(g.stateOrbs, o.ToState())
	}
	for _, d := range g.drones {
		g.stateOrbs = append(g.stateOrbs, d.ToState())
	}
	g.statePellets = g.statePellets[:0]
	for _, p := range g.pellets {
		g.statePellets = append(g.statePellets, p.ToState())
	}

	snap := Snapshot{Tick: g.tick, Orbs: g.stateOrbs, Pellets: g.statePellets}
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		log.Printf("game %s: marshal snapshot: %v", g.sessionID, err)
		return
	}
	for _, c := range g.clients {
		c.SendBinary(data)
	}
}
