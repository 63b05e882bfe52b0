package main

import (
	"strings"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	a, err := NewAuth(openTestDB(t))
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	return a
}

func TestAuthRegisterAndValidate(t *testing.T) {
	a := newTestAuth(t)

	token, id, err := a.Register("alice", "hunter22", "1.2.3.4")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" || id == 0 {
		t.Fatalf("expected token and id, got %q, %d", token, id)
	}

	gotID, name, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if gotID != id || name != "alice" {
		t.Errorf("expected (%d, alice), got (%d, %s)", id, gotID, name)
	}
}

func TestAuthLogin(t *testing.T) {
	a := newTestAuth(t)
	_, id, err := a.Register("bob", "hunter22", "1.2.3.4")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, gotID, err := a.Login("bob", "hunter22", "1.2.3.4")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotID != id || token == "" {
		t.Errorf("login should return the account id and a token")
	}
}

func TestAuthLoginFailuresAreVague(t *testing.T) {
	a := newTestAuth(t)
	if _, _, err := a.Register("carol", "hunter22", "1.2.3.4"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, badPass := a.Login("carol", "wrongpass", "1.2.3.4")
	_, _, noUser := a.Login("mallory", "wrongpass", "1.2.3.4")
	if badPass == nil || noUser == nil {
		t.Fatal("bad credentials should fail")
	}
	// Same message either way, so callers cannot probe which accounts exist.
	if badPass.Error() != noUser.Error() {
		t.Errorf("failure messages differ: %q vs %q", badPass, noUser)
	}
	if !strings.Contains(badPass.Error(), "invalid username or password") {
		t.Errorf("unexpected failure message: %v", badPass)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	a := newTestAuth(t)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "hunter22"},
		{"long username", "abcdefghijklmnopq", "hunter22"},
		{"bad characters", "not ok!", "hunter22"},
		{"short password", "dave", "12345"},
	}
	for _, c := range cases {
		if _, _, err := a.Register(c.username, c.password, "1.2.3.4"); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestAuthDuplicateUsername(t *testing.T) {
	a := newTestAuth(t)
	if _, _, err := a.Register("erin", "hunter22", "1.2.3.4"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, _, err := a.Register("erin", "hunter22", "1.2.3.4")
	if err == nil || !strings.Contains(err.Error(), "taken") {
		t.Errorf("expected a username-taken error, got %v", err)
	}
}

func TestAuthRateLimit(t *testing.T) {
	a := newTestAuth(t)

	// Unknown-user logins skip the bcrypt compare, so burning through the
	// window is cheap.
	for i := 0; i < rateLimit; i++ {
		_, _, err := a.Login("nobody", "wrongpass", "6.6.6.6")
		if err == nil || strings.Contains(err.Error(), "too many") {
			t.Fatalf("attempt %d should fail on credentials, not rate: %v", i, err)
		}
	}
	if _, _, err := a.Login("nobody", "wrongpass", "6.6.6.6"); err == nil || !strings.Contains(err.Error(), "too many") {
		t.Errorf("attempt %d should be rate limited, got %v", rateLimit, err)
	}
	// Other hosts are unaffected.
	if _, _, err := a.Login("nobody", "wrongpass", "7.7.7.7"); err != nil && strings.Contains(err.Error(), "too many") {
		t.Errorf("rate limit should be per IP, got %v", err)
	}
}

func TestAuthSecretPersists(t *testing.T) {
	db := openTestDB(t)
	a1, err := NewAuth(db)
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	token, _, err := a1.Register("frank", "hunter22", "1.2.3.4")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// A second Auth over the same database loads the stored secret, so
	// tokens keep working across restarts.
	a2, err := NewAuth(db)
	if err != nil {
		t.Fatalf("NewAuth again: %v", err)
	}
	if _, name, err := a2.ValidateToken(token); err != nil || name != "frank" {
		t.Errorf("token should survive an auth restart, got (%s, %v)", name, err)
	}
}

func TestAuthRejectsForeignToken(t *testing.T) {
	a1 := newTestAuth(t)
	a2 := newTestAuth(t)

	token, _, err := a1.Register("grace", "hunter22", "1.2.3.4")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := a2.ValidateToken(token); err == nil {
		t.Error("a token signed under another secret should be rejected")
	}
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	a := newTestAuth(t)
	token, _, err := a.Register("heidi", "hunter22", "1.2.3.4")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := a.ValidateToken(token + "x"); err == nil {
		t.Error("a tampered token should be rejected")
	}
	if _, _, err := a.ValidateToken("not.a.token"); err == nil {
		t.Error("garbage should be rejected")
	}
}

func TestGenerateGuestName(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := GenerateGuestName()
		if !strings.Contains(name, "-") {
			t.Fatalf("guest name %q should contain a dash", name)
		}
		if len(name) > maxNameLen {
			t.Fatalf("guest name %q exceeds the %d char cap", name, maxNameLen)
		}
	}
}
