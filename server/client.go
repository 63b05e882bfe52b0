package main

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256

	maxMessagesPerSec = 50
	maxNameLen        = 16
	maxArenaNameLen   = 32
)

// binaryMarker prefixes frames in the send channel that must go out as
// websocket binary messages. JSON never starts with this byte.
const binaryMarker = 0xFF

// Client is one websocket connection. ReadPump drives the message
// handlers, WritePump drains the send channel; both exit on disconnect.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	ip   string

	playerID  string
	sessionID string

	authPlayerID int64
	authUsername string

	msgCount   int
	msgResetAt time.Time
}

func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufSize),
		ip:   ip,
	}
}

// ReadPump reads client messages until the connection drops, applying the
// per-second message cap.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.ip)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("client %s: read: %v", c.ip, err)
			}
			return
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			continue // shed the excess rather than disconnecting
		}

		c.handleMessage(raw)
	}
}

// WritePump ships queued frames and keeps the connection alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if len(msg) > 0 && msg[0] == binaryMarker {
				kind = websocket.BinaryMessage
				msg = msg[1:]
			}
			if err := c.conn.WriteMessage(kind, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a frame without blocking. The hub can close send while a
// broadcast is in flight; the recover keeps that from killing a tick loop.
func (c *Client) trySend(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// slow client, drop the frame
	}
}

func (c *Client) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("client %s: marshal: %v", c.ip, err)
		return
	}
	c.trySend(data)
}

func (c *Client) SendRaw(data []byte) {
	c.trySend(data)
}

func (c *Client) SendBinary(data []byte) {
	c.trySend(append([]byte{binaryMarker}, data...))
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("malformed message")
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgSessions, Data: c.hub.sessions.ListSessions()})
}

func (c *Client) handleCreate(d json.RawMessage) {
	var msg CreateMsg
	if len(d) > 0 {
		if err := json.Unmarshal(d, &msg); err != nil {
			c.sendError("malformed create")
			return
		}
	}
	name := strings.TrimSpace(msg.SessionName)
	if len(name) > maxArenaNameLen {
		name = name[:maxArenaNameLen]
	}
	sess, err := c.hub.sessions.CreateSession(name)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleCheck(d json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(d, &msg); err != nil {
		c.sendError("malformed check")
		return
	}
	resp := CheckedMsg{SID: msg.SID}
	if sess := c.hub.sessions.GetSession(msg.SID); sess != nil {
		resp.Exists = true
		resp.Name = sess.Name
		resp.Players = sess.Game.PlayerCount()
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: resp})
}

func (c *Client) handleJoin(d json.RawMessage) {
	if c.sessionID != "" {
		c.sendError("already in an arena")
		return
	}
	var msg JoinMsg
	if err := json.Unmarshal(d, &msg); err != nil {
		c.sendError("malformed join")
		return
	}
	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.sendError("arena not found")
		return
	}

	name := strings.TrimSpace(msg.Name)
	if c.authUsername != "" {
		name = c.authUsername
	}
	if name == "" {
		name = GenerateGuestName()
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	playerID := GenerateID(8)
	orb := sess.Game.AddPlayer(playerID, name, c.authPlayerID, c)
	if orb == nil {
		c.sendError("arena is full")
		return
	}
	c.playerID = playerID
	c.sessionID = sess.ID

	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{"sid": sess.ID}})
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ID:     playerID,
		Half:   sess.Game.WorldHalf(),
		Radius: orb.Radius,
	}})
}

func (c *Client) handleInput(d json.RawMessage) {
	if c.sessionID == "" {
		return
	}
	var in ClientInput
	if err := json.Unmarshal(d, &in); err != nil {
		return
	}
	if sess := c.hub.sessions.GetSession(c.sessionID); sess != nil {
		sess.Game.HandleInput(c.playerID, in)
	}
}

func (c *Client) handleLeave() {
	if c.sessionID == "" {
		return
	}
	c.hub.sessions.RemovePlayer(c.sessionID, c.playerID)
	c.playerID = ""
	c.sessionID = ""
}

func (c *Client) handleRegister(d json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts unavailable")
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(d, &msg); err != nil {
		c.sendError("malformed register")
		return
	}
	token, id, err := c.hub.auth.Register(msg.Username, msg.Password, c.ip)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.bindAccount(id, msg.Username)
	c.hub.analytics.Track(EvtRegister, id, "", nil)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id}})
}

func (c *Client) handleLogin(d json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts unavailable")
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(d, &msg); err != nil {
		c.sendError("malformed login")
		return
	}
	token, id, err := c.hub.auth.Login(msg.Username, msg.Password, c.ip)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if c.hub.IsOnline(id) {
		c.sendError("account already connected")
		return
	}
	c.bindAccount(id, msg.Username)
	c.hub.analytics.Track(EvtLogin, id, "", nil)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id}})
}

func (c *Client) handleAuth(d json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts unavailable")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(d, &msg); err != nil {
		c.sendError("malformed auth")
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("session expired, log in again")
		return
	}
	if c.hub.IsOnline(id) {
		c.sendError("account already connected")
		return
	}
	c.bindAccount(id, username)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: msg.Token, Username: username, PlayerID: id}})
}

func (c *Client) bindAccount(id int64, username string) {
	c.authPlayerID = id
	c.authUsername = username
	c.hub.SetOnline(id, c)
}

func (c *Client) handleProfile() {
	if c.authPlayerID == 0 || c.hub.db == nil {
		c.sendError("not logged in")
		return
	}
	stats, err := c.hub.db.GetStats(c.authPlayerID)
	if err != nil {
		c.sendError("profile unavailable")
		return
	}
	achievements, err := c.hub.db.GetAchievements(c.authPlayerID)
	if err != nil {
		c.sendError("profile unavailable")
		return
	}
	if achievements == nil {
		achievements = []string{}
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:     c.authUsername,
		Runs:         stats.Runs,
		BestScore:    stats.BestScore,
		Pellets:      stats.Pellets,
		Orbs:         stats.Orbs,
		Playtime:     stats.Playtime,
		Achievements: achievements,
	}})
}
