package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"themind/store"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sessions := NewSessionManager(testKey, time.Hour, false)
	t.Cleanup(sessions.Close)

	users, err := NewUserCache(time.Minute)
	if err != nil {
		t.Fatalf("NewUserCache failed: %v", err)
	}
	t.Cleanup(users.Close)

	return NewService(st, sessions, users)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{name: "valid", username: "alice", password: "secret123"},
		{name: "short name", username: "al", password: "secret123", want: ErrInvalidUsername},
		{name: "symbols", username: "al ice!", password: "secret123", want: ErrInvalidUsername},
		{name: "markup stripped to nothing", username: "<b></b>", password: "secret123", want: ErrInvalidUsername},
		{name: "short password", username: "bob", password: "abc1", want: ErrInvalidPassword},
		{name: "no digits", username: "bob", password: "abcdefghij", want: ErrInvalidPassword},
		{name: "duplicate", username: "alice", password: "secret123", want: ErrUserExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("Register(%q) = %v, want %v", tt.username, err, tt.want)
			}
		})
	}
}

func TestLoginLogout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "carol", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "carol", "wrongpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}

	sessionID, user, err := svc.Login(ctx, "carol", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("logged in as %d, want %d", user.ID, registered.ID)
	}

	userID, ok := svc.ValidateSession(sessionID)
	if !ok || userID != registered.ID {
		t.Fatalf("ValidateSession = %d, %v", userID, ok)
	}

	resolved, err := svc.User(ctx, userID)
	if err != nil || resolved == nil || resolved.Username != "carol" {
		t.Errorf("User(%d) = %+v, %v", userID, resolved, err)
	}

	svc.Logout(sessionID)
	if _, ok := svc.ValidateSession(sessionID); ok {
		t.Error("session still valid after logout")
	}
}

func TestUser_Missing(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.User(context.Background(), 404)
	if err != nil || user != nil {
		t.Errorf("User(404) = %+v, %v, want nil nil", user, err)
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	sm := NewSessionManager(testKey, time.Hour, false)
	defer sm.Close()

	sessionID, err := sm.CreateSession(7)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(rec, sessionID); err != nil {
		t.Fatalf("SetSessionCookie failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
	if cookies[0].Value == sessionID {
		t.Error("cookie carries the raw session id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	if got := sm.SessionFromRequest(req); got != sessionID {
		t.Errorf("SessionFromRequest = %q, want %q", got, sessionID)
	}

	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	tampered.AddCookie(&http.Cookie{Name: cookieName, Value: cookies[0].Value + "x"})
	if got := sm.SessionFromRequest(tampered); got != "" {
		t.Errorf("tampered cookie accepted: %q", got)
	}
}

func TestSessionExpiry(t *testing.T) {
	sm := NewSessionManager(testKey, time.Hour, false)
	defer sm.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	sessionID, err := sm.CreateSession(9)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, ok := sm.GetUserID(sessionID); !ok {
		t.Fatal("fresh session rejected")
	}

	now = now.Add(2 * time.Hour)
	if _, ok := sm.GetUserID(sessionID); ok {
		t.Error("expired session accepted")
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := map[string]string{
		"  dave  ":              "dave",
		"<script>x</script>eve": "eve",
		"<b>frank</b>":          "frank",
		"plain":                 "plain",
	}
	for in, want := range tests {
		if got := SanitizeUsername(in); got != want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}
