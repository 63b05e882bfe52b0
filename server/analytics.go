package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	spatialhash "github.com/rybakatya/SpatialHash"
)

// Analytics event types
const (
	EvtSessionStart = "session_start"
	EvtSessionEnd   = "session_end"
	EvtRunStart     = "run_start"
	EvtRunEnd       = "run_end"
	EvtSwallow      = "orb_swallowed"
	EvtAchievement  = "achievement"
	EvtRegister     = "register"
	EvtLogin        = "login"
)

const (
	analyticsBufSize    = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

type analyticsEvent struct {
	Type      string
	PlayerID  int64
	SessionID string
	Data      string // JSON, may be empty
	At        time.Time
}

// GridGauges is a point-in-time reading of one arena's two spatial
// indexes.
type GridGauges struct {
	MobileEntities int
	MobileCells    int
	PelletEntities int
	PelletCells    int
	Pooled         int
}

// LiveStats is the aggregate the health endpoint reports.
type LiveStats struct {
	Sessions int `json:"sessions"`
	Entities int `json:"entities"` // orbs plus pellets across all arenas
	Cells    int `json:"cells"`    // occupied coarse cells across all arenas
	Pooled   int `json:"pooled"`   // idle containers held by the grid pools
	Dropped  int `json:"dropped_events,omitempty"`
}

// Analytics persists gameplay events in batches and keeps a handful of
// live gauges for the health endpoint. A nil *Analytics is a no-op, which
// keeps game tests free of wiring.
type Analytics struct {
	db      *DB
	events  chan analyticsEvent
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu             sync.Mutex
	dropped        int
	activeSessions int
	gridStats      map[string]GridGauges
}

func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:        db,
		events:    make(chan analyticsEvent, analyticsBufSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		gridStats: make(map[string]GridGauges),
	}
	go a.writer()
	return a
}

// Track queues one event. Never blocks; events are dropped when the
// buffer is full.
func (a *Analytics) Track(event string, playerID int64, sessionID string, data map[string]interface{}) {
	if a == nil {
		return
	}
	evt := analyticsEvent{Type: event, PlayerID: playerID, SessionID: sessionID, At: time.Now()}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			evt.Data = string(raw)
		}
	}
	select {
	case a.events <- evt:
	default:
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
	}
}

// writer batches queued events and flushes on size or on a timer.
func (a *Analytics) writer() {
	defer close(a.stopped)

	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	batch := make([]analyticsEvent, 0, analyticsBatchSize)
	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.done:
			// Drain whatever is still queued, then flush once.
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					if len(batch) > 0 {
						a.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(batch []analyticsEvent) {
	if a.db == nil {
		return
	}
	if err := a.db.insertEventsTx(batch); err != nil {
		log.Printf("analytics: flush %d events: %v", len(batch), err)
	}
}

// Stop flushes everything queued and halts the writer. Returns after the
// final flush has hit the database.
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	a.once.Do(func() { close(a.done) })
	<-a.stopped
}

func (a *Analytics) SetActiveSessions(n int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.activeSessions = n
	a.mu.Unlock()
}

// SetGridStats records a fresh reading of one arena's indexes. Games push
// these every few seconds from their tick loop.
func (a *Analytics) SetGridStats(sessionID string, mobiles, pellets spatialhash.Stats) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.gridStats[sessionID] = GridGauges{
		MobileEntities: mobiles.Entities,
		MobileCells:    mobiles.Cells,
		PelletEntities: pellets.Entities,
		PelletCells:    pellets.Cells,
		Pooled:         mobiles.Pooled + pellets.Pooled,
	}
	a.mu.Unlock()
}

// DropGridStats forgets a stopped arena's gauges.
func (a *Analytics) DropGridStats(sessionID string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	delete(a.gridStats, sessionID)
	a.mu.Unlock()
}

// Live sums the gauges across arenas.
func (a *Analytics) Live() LiveStats {
	if a == nil {
		return LiveStats{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := LiveStats{Sessions: a.activeSessions, Dropped: a.dropped}
	for _, gg := range a.gridStats {
		out.Entities += gg.MobileEntities + gg.PelletEntities
		out.Cells += gg.MobileCells + gg.PelletCells
		out.Pooled += gg.Pooled
	}
	return out
}
