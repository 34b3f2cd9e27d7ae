package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"themind/store"
)

var (
	ErrInvalidUsername    = errors.New("username must be alphanumeric and 3-20 characters")
	ErrInvalidPassword    = errors.New("password must be at least 8 characters and contain both letters and numbers")
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

var usernamePattern = regexp.MustCompile("^[a-zA-Z0-9]+$")

type Service struct {
	store   store.Store
	session *SessionManager
	users   *UserCache
}

func NewService(store store.Store, sessionManager *SessionManager, users *UserCache) *Service {
	return &Service{
		store:   store,
		session: sessionManager,
		users:   users,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (*store.User, error) {
	username = SanitizeUsername(username)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	existingUser, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrUserExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.store.CreateUser(ctx, username, string(passwordHash))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &store.User{ID: userID, Username: username}, nil
}

// Login checks the credentials and opens a session, returning its id.
func (s *Service) Login(ctx context.Context, username, password string) (string, *store.User, error) {
	username = SanitizeUsername(username)

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	sessionID, err := s.session.CreateSession(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.users.Set(user)

	return sessionID, user, nil
}

func (s *Service) Logout(sessionID string) {
	if userID, ok := s.session.GetUserID(sessionID); ok {
		s.users.Delete(userID)
	}
	s.session.DeleteSession(sessionID)
}

func (s *Service) ValidateSession(sessionID string) (int64, bool) {
	return s.session.GetUserID(sessionID)
}

// User resolves an account by id, going to the store only on a cache miss.
// It returns nil when the account no longer exists.
func (s *Service) User(ctx context.Context, userID int64) (*store.User, error) {
	if user, ok := s.users.Get(userID); ok {
		return user, nil
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		s.users.Set(user)
	}
	return user, nil
}

func (s *Service) GetSessionManager() *SessionManager {
	return s.session
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 20 {
		return ErrInvalidUsername
	}
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}

	hasLetter := false
	hasNumber := false

	for _, char := range password {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') {
			hasLetter = true
		}
		if char >= '0' && char <= '9' {
			hasNumber = true
		}
	}

	if !hasLetter || !hasNumber {
		return ErrInvalidPassword
	}

	return nil
}
