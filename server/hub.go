package main

import (
	"fmt"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub tracks every connected client and owns the shared services the
// message handlers reach for.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu        sync.RWMutex
	clients   map[*Client]bool
	connsByIP map[string]int
	online    map[int64]*Client // authenticated account -> connection

	sessions  *SessionManager
	db        *DB
	auth      *Auth
	analytics *Analytics
}

// NewHub wires the hub and its services. db may be nil, in which case
// accounts and persistence are disabled and everyone plays as a guest.
func NewHub(db *DB, analytics *Analytics) (*Hub, error) {
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		connsByIP:  make(map[string]int),
		online:     make(map[int64]*Client),
		sessions:   NewSessionManager(db, analytics),
		db:         db,
		analytics:  analytics,
	}
	if db != nil {
		auth, err := NewAuth(db)
		if err != nil {
			return nil, fmt.Errorf("init auth: %w", err)
		}
		h.auth = auth
	}
	return h, nil
}

// Run processes client registration. Runs on its own goroutine for the
// life of the server.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			if c.authPlayerID != 0 && h.online[c.authPlayerID] == c {
				delete(h.online, c.authPlayerID)
			}
			h.mu.Unlock()
			if c.sessionID != "" {
				h.sessions.RemovePlayer(c.sessionID, c.playerID)
			}
		}
	}
}

// CanAccept applies the per-IP and total connection caps.
func (h *Hub) CanAccept(ip string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) >= maxTotalConns {
		return false
	}
	return h.connsByIP[ip] < maxConnsPerIP
}

func (h *Hub) TrackConnect(ip string) {
	h.mu.Lock()
	h.connsByIP[ip]++
	h.mu.Unlock()
}

func (h *Hub) TrackDisconnect(ip string) {
	h.mu.Lock()
	if h.connsByIP[ip] <= 1 {
		delete(h.connsByIP, ip)
	} else {
		h.connsByIP[ip]--
	}
	h.mu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsOnline reports whether an account already has a live connection.
func (h *Hub) IsOnline(playerID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.online[playerID]
	return ok
}

func (h *Hub) SetOnline(playerID int64, c *Client) {
	h.mu.Lock()
	h.online[playerID] = c
	h.mu.Unlock()
}
