package auth

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

const cookieName = "themind_session"

type Session struct {
	UserID    int64
	ExpiresAt time.Time
}

// SessionManager keeps sessions in memory and hands them to clients as
// signed cookies. Revoking a session only needs the server-side entry gone.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	codec    *securecookie.SecureCookie
	ttl      time.Duration
	secure   bool
	now      func() time.Time
	done     chan struct{}
}

func NewSessionManager(hashKey []byte, ttl time.Duration, secure bool) *SessionManager {
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(ttl.Seconds()))

	sm := &SessionManager{
		sessions: make(map[string]*Session),
		codec:    codec,
		ttl:      ttl,
		secure:   secure,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	go sm.cleanupExpiredSessions()

	return sm
}

func (sm *SessionManager) CreateSession(userID int64) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = &Session{
		UserID:    userID,
		ExpiresAt: sm.now().Add(sm.ttl),
	}
	sm.mu.Unlock()

	return sessionID, nil
}

func (sm *SessionManager) GetUserID(sessionID string) (int64, bool) {
	sm.mu.RLock()
	session, exists := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if !exists {
		return 0, false
	}

	if sm.now().After(session.ExpiresAt) {
		sm.DeleteSession(sessionID)
		return 0, false
	}

	return session.UserID, true
}

func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()
}

func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, sessionID string) error {
	encoded, err := sm.codec.Encode(cookieName, sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(sm.ttl.Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
	})
}

// SessionFromRequest returns the session id carried by a validly signed
// cookie, or "" when there is none.
func (sm *SessionManager) SessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	var sessionID string
	if err := sm.codec.Decode(cookieName, cookie.Value, &sessionID); err != nil {
		return ""
	}
	return sessionID
}

func (sm *SessionManager) Close() {
	close(sm.done)
}

func (sm *SessionManager) cleanupExpiredSessions() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-sm.done:
			return
		case <-ticker.C:
			sm.mu.Lock()
			now := sm.now()
			for id, session := range sm.sessions {
				if now.After(session.ExpiresAt) {
					delete(sm.sessions, id)
				}
			}
			sm.mu.Unlock()
		}
	}
}

func generateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
