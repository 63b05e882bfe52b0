package main

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

const maxSessions = 100

// SessionIdleTimeout is how long an empty arena lingers before it is torn
// down. A var so tests can shorten it.
var SessionIdleTimeout = 30 * time.Second

// Session is one arena and the game running it.
type Session struct {
	ID      string
	Name    string
	Game    *Game
	Created time.Time
}

// SessionManager owns every live arena.
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	db        *DB
	analytics *Analytics
}

func NewSessionManager(db *DB, analytics *Analytics) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		db:        db,
		analytics: analytics,
	}
}

// CreateSession spins up a new arena and starts its tick loop.
func (sm *SessionManager) CreateSession(name string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil, fmt.Errorf("session limit reached")
	}
	if name == "" {
		name = "arena-" + GenerateID(2)
	}
	id := GenerateUUID()
	game, err := NewGame(id, DefaultArenaConfig(), sm.db, sm.analytics)
	if err != nil {
		return nil, err
	}
	sess := &Session{ID: id, Name: name, Game: game, Created: time.Now()}
	sm.sessions[id] = sess
	go game.Run()

	sm.analytics.Track(EvtSessionStart, 0, id, map[string]interface{}{"name": name})
	sm.analytics.SetActiveSessions(len(sm.sessions))
	log.Printf("session %s (%s) created", id, name)
	return sess, nil
}

func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// RemovePlayer drops a player from an arena. When the arena empties, an
// idle timer starts; a join before it fires keeps the arena alive.
func (sm *SessionManager) RemovePlayer(sessionID, playerID string) {
	sm.mu.RLock()
	sess := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if sess == nil {
		return
	}
	sess.Game.RemovePlayer(playerID)
	if sess.Game.PlayerCount() == 0 {
		time.AfterFunc(SessionIdleTimeout, func() { sm.reapIfEmpty(sessionID) })
	}
}

// reapIfEmpty tears a session down if it is still empty when its idle
// timer fires.
func (sm *SessionManager) reapIfEmpty(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sess, ok := sm.sessions[id]
	if !ok || sess.Game.PlayerCount() > 0 {
		return
	}
	sess.Game.Stop()
	delete(sm.sessions, id)
	sm.analytics.Track(EvtSessionEnd, 0, id, nil)
	sm.analytics.SetActiveSessions(len(sm.sessions))
	log.Printf("session %s (%s) reaped after idle", id, sess.Name)
}

// ListSessions returns the joinable arenas, oldest first.
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Created.Before(sessions[j].Created) })

	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionInfo{ID: s.ID, Name: s.Name, Players: s.Game.PlayerCount()})
	}
	return out
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// StopAll shuts every arena down. Used on server shutdown.
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, sess := range sm.sessions {
		sess.Game.Stop()
		delete(sm.sessions, id)
	}
}
