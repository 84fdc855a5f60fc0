package service

import (
	"errors"
	"testing"
	"time"

	"github.com/luocen/notelens/internal/models"
)

type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) CreateUser(user *models.User) error {
	user.ID = uint(len(f.users) + 1)
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserStore) GetUserByUsername(username string) (*models.User, error) {
	return f.users[username], nil
}

func TestRegisterAndLogin(t *testing.T) {
	auth := NewAuthService(testLogger(), newFakeUserStore(), time.Hour)

	user, err := auth.Register("luocen", "secret123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.HashedPassword == "secret123" || user.HashedPassword == "" {
		t.Error("password stored without hashing")
	}

	token, err := auth.Login("luocen", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	userID, ok := auth.ValidateSession(token)
	if !ok || userID != user.ID {
		t.Errorf("ValidateSession = (%d, %v), want (%d, true)", userID, ok, user.ID)
	}

	auth.Logout(token)
	if _, ok := auth.ValidateSession(token); ok {
		t.Error("session still valid after logout")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	auth := NewAuthService(testLogger(), newFakeUserStore(), time.Hour)

	if _, err := auth.Register("luocen", "secret123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := auth.Register("luocen", "other456"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auth := NewAuthService(testLogger(), newFakeUserStore(), time.Hour)

	if _, err := auth.Register("luocen", "secret123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := auth.Login("luocen", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.Login("nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	auth := NewAuthService(testLogger(), newFakeUserStore(), -time.Second)

	if _, err := auth.Register("luocen", "secret123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, err := auth.Login("luocen", "secret123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, ok := auth.ValidateSession(token); ok {
		t.Error("expired session accepted")
	}
}

func TestRegisterRejectsShortCredentials(t *testing.T) {
	auth := NewAuthService(testLogger(), newFakeUserStore(), time.Hour)

	if _, err := auth.Register("ab", "secret123"); err == nil {
		t.Error("short username accepted")
	}
	if _, err := auth.Register("luocen", "12345"); err == nil {
		t.Error("short password accepted")
	}
}
