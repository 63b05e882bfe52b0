package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// extractIP returns the client address without the port, so connection
// caps and rate limits key on the host alone.
func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade %s: %v", ip, err)
		return
	}
	hub.TrackConnect(ip)
	client := NewClient(hub, conn, ip)
	hub.register <- client
	go client.WritePump()
	go client.ReadPump()
}

// SetupRoutes builds the server's HTTP surface.
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			Status  string `json:"status"`
			Clients int    `json:"clients"`
			LiveStats
		}{
			Status:    "ok",
			Clients:   hub.ClientCount(),
			LiveStats: hub.analytics.Live(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.Error(w, "no database", http.StatusServiceUnavailable)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := hub.db.GetLeaderboard(r.URL.Query().Get("by"), limit)
		if err != nil {
			log.Printf("leaderboard: %v", err)
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []LeaderboardEntry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	})

	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		serveQR(hub, w, r)
	})

	return mux
}
