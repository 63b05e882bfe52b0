package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgInput    = "input"
	MsgCreate   = "create"   // create arena
	MsgList     = "list"     // list arenas
	MsgCheck    = "check"    // check if an arena exists
	MsgRegister = "register" // create account
	MsgLogin    = "login"    // password login
	MsgAuth     = "auth"     // resume with token
	MsgProfile  = "profile"  // lifetime stats for the logged-in account
)

// Server -> Client message types
const (
	MsgState       = "state" // msgpack snapshot, sent as a binary frame
	MsgSessions    = "sessions"
	MsgJoined      = "joined"
	MsgCreated     = "created" // arena created, client should navigate
	MsgWelcome     = "welcome"
	MsgError       = "error"
	MsgChecked     = "checked"
	MsgAuthOK      = "auth_ok"
	MsgDeath       = "death" // you were swallowed
	MsgEaten       = "eaten" // somebody swallowed somebody (kill feed)
	MsgAward       = "award" // achievement unlocked
	MsgProfileData = "profile_data"
)

// Envelope wraps all outgoing control messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ClientInput is the steering target the client sends, world coordinates
type ClientInput struct {
	TX    float64 `json:"tx"`
	TZ    float64 `json:"tz"`
	Boost bool    `json:"boost"`
}

// JoinMsg is sent when a player wants to join an arena
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
}

// CreateMsg is sent when a player wants to create an arena
type CreateMsg struct {
	SessionName string `json:"sname"`
}

// CheckMsg asks whether an arena exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to an arena check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
}

// WelcomeMsg is sent to a player when they enter an arena
type WelcomeMsg struct {
	ID     string  `json:"id"`
	Half   float64 `json:"half"` // world extends [-half, half] on both axes
	Radius float64 `json:"r"`
}

// DeathMsg notifies a player their orb was swallowed
type DeathMsg struct {
	By    string `json:"by"`
	Score int    `json:"score"`
}

// EatenMsg is broadcast to the arena when an orb is swallowed
type EatenMsg struct {
	EaterID    string `json:"eid"`
	EaterName  string `json:"en"`
	VictimID   string `json:"vid"`
	VictimName string `json:"vn"`
}

// AwardMsg notifies a player of a newly unlocked achievement
type AwardMsg struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates with a password
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes a session with a token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms registration, login or token resume
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}

// ProfileDataMsg carries lifetime stats for an account
type ProfileDataMsg struct {
	Username     string   `json:"username"`
	Runs         int      `json:"runs"`
	BestScore    int      `json:"best"`
	Pellets      int      `json:"pellets"`
	Orbs         int      `json:"orbs"`
	Playtime     float64  `json:"playtime"`
	Achievements []string `json:"achievements"`
}

// SessionInfo is used in the arena list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// OrbState is one mobile entity in a snapshot
type OrbState struct {
	ID    string  `msgpack:"id"`
	Name  string  `msgpack:"n"`
	X     float64 `msgpack:"x"`
	Z     float64 `msgpack:"z"`
	R     float64 `msgpack:"r"`
	Score int     `msgpack:"s"`
	Bot   bool    `msgpack:"b"`
	Alive bool    `msgpack:"a"`
}

// PelletState is one pellet in a snapshot
type PelletState struct {
	ID string  `msgpack:"id"`
	X  float64 `msgpack:"x"`
	Z  float64 `msgpack:"z"`
}

// Snapshot is the full arena state, broadcast each tick as msgpack
type Snapshot struct {
	Tick    uint64        `msgpack:"t"`
	Orbs    []OrbState    `msgpack:"o"`
	Pellets []PelletState `msgpack:"p"`
}
