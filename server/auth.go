package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry      = 7 * 24 * time.Hour
	bcryptCost     = 12
	rateWindow     = time.Minute
	rateLimit      = 10 // auth attempts per IP per window
	minPasswordLen = 6
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)

// Auth issues and validates account tokens. The signing secret lives in
// the settings table so tokens survive restarts.
type Auth struct {
	db     *DB
	secret []byte

	rateMu   sync.Mutex
	attempts map[string][]time.Time
}

func NewAuth(db *DB) (*Auth, error) {
	a := &Auth{db: db, attempts: make(map[string][]time.Time)}
	secret, err := a.loadOrCreateSecret()
	if err != nil {
		return nil, fmt.Errorf("load signing secret: %w", err)
	}
	a.secret = secret
	return a, nil
}

func (a *Auth) loadOrCreateSecret() ([]byte, error) {
	v, err := a.db.GetSetting("jwt_secret")
	if err != nil {
		return nil, err
	}
	if v != "" {
		return hex.DecodeString(v)
	}
	secret := make([]byte, 32)
	rand.Read(secret)
	if err := a.db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
		return nil, err
	}
	log.Printf("auth: generated new signing secret")
	return secret, nil
}

// Register creates an account and logs it in. Rate limited per IP like
// login, so one host cannot farm accounts.
func (a *Auth) Register(username, password, ip string) (string, int64, error) {
	if !a.checkRate(ip) {
		return "", 0, fmt.Errorf("too many attempts, slow down")
	}
	if !usernameRe.MatchString(username) {
		return "", 0, fmt.Errorf("username must be 3-16 letters, digits or underscores")
	}
	if len(password) < minPasswordLen {
		return "", 0, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	exists, err := a.db.UsernameExists(username)
	if err != nil {
		return "", 0, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return "", 0, fmt.Errorf("username is taken")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		return "", 0, fmt.Errorf("create player: %w", err)
	}
	token, err := a.generateToken(id, username)
	if err != nil {
		return "", 0, err
	}
	return token, id, nil
}

// Login checks a password and issues a token. Failures are deliberately
// vague so they do not confirm which accounts exist.
func (a *Auth) Login(username, password, ip string) (string, int64, error) {
	if !a.checkRate(ip) {
		return "", 0, fmt.Errorf("too many attempts, slow down")
	}
	p, err := a.db.GetPlayerByUsername(username)
	if err != nil {
		return "", 0, fmt.Errorf("look up player: %w", err)
	}
	if p == nil {
		return "", 0, fmt.Errorf("invalid username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PassHash), []byte(password)) != nil {
		return "", 0, fmt.Errorf("invalid username or password")
	}
	token, err := a.generateToken(p.ID, p.Username)
	if err != nil {
		return "", 0, err
	}
	return token, p.ID, nil
}

func (a *Auth) generateToken(id int64, username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  id,
		"name": username,
		"iat":  now.Unix(),
		"exp":  now.Add(jwtExpiry).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// ValidateToken returns the account a token names. The account is looked
// up again so tokens for deleted accounts stop working.
func (a *Auth) ValidateToken(token string) (int64, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", fmt.Errorf("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(float64) // JSON numbers decode as float64
	if !ok {
		return 0, "", fmt.Errorf("invalid token subject")
	}
	p, err := a.db.GetPlayerByID(int64(sub))
	if err != nil {
		return 0, "", fmt.Errorf("look up player: %w", err)
	}
	if p == nil {
		return 0, "", fmt.Errorf("account no longer exists")
	}
	return p.ID, p.Username, nil
}

// checkRate reports whether ip may make another auth attempt, and counts
// this one if so.
func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rateWindow)
	kept := a.attempts[ip][:0]
	for _, t := range a.attempts[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rateLimit {
		a.attempts[ip] = kept
		return false
	}
	a.attempts[ip] = append(kept, now)
	return true
}

var guestAdjectives = []string{
	"hungry", "sneaky", "greedy", "shiny", "drowsy",
	"mellow", "feral", "bouncy", "foggy", "rapid",
}

var guestNouns = []string{
	"orb", "blob", "pearl", "glob", "mote",
	"speck", "bead", "comet", "pip", "dot",
}

// GenerateGuestName invents a display name for anonymous players. Stays
// under the client name cap.
func GenerateGuestName() string {
	adj := guestAdjectives[int(randFloat()*float64(len(guestAdjectives)))%len(guestAdjectives)]
	noun := guestNouns[int(randFloat()*float64(len(guestNouns)))%len(guestNouns)]
	return fmt.Sprintf("%s-%s%02d", adj, noun, int(randFloat()*100))
}
