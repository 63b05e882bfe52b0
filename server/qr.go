package main

import (
	"log"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// serveQR renders a QR code for joining an arena from a second screen.
// The encoded URL is the websocket endpoint with the arena preselected;
// the client app reads the sid query parameter and joins on connect.
func serveQR(hub *Hub, w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	if sid == "" {
		http.Error(w, "missing sid", http.StatusBadRequest)
		return
	}
	if hub.sessions.GetSession(sid) == nil {
		http.Error(w, "arena not found", http.StatusNotFound)
		return
	}
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	joinURL := scheme + "://" + r.Host + "/ws?sid=" + sid

	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
	if err != nil {
		log.Printf("qr: encode: %v", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
