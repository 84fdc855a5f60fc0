package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/luocen/notelens/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

type userStore interface {
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
}

type session struct {
	userID    uint
	expiresAt time.Time
}

// AuthService handles account registration and bearer-token sessions.
// Sessions live in memory; a restart logs everyone out.
type AuthService struct {
	logger     *zap.Logger
	users      userStore
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]session
}

func NewAuthService(logger *zap.Logger, users userStore, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		logger:     logger,
		users:      users,
		sessionTTL: sessionTTL,
		sessions:   make(map[string]session),
	}
}

func (a *AuthService) Register(username, password string) (*models.User, error) {
	if len(username) < 3 || len(password) < 6 {
		return nil, fmt.Errorf("username must be at least 3 and password at least 6 characters")
	}

	existing, err := a.users.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:       username,
		HashedPassword: string(hashed),
	}
	if err := a.users.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("User registered", zap.String("username", username))
	return user, nil
}

func (a *AuthService) Login(username, password string) (string, error) {
	user, err := a.users.GetUserByUsername(username)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		a.logger.Warn("Login failed", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	a.mu.Lock()
	a.sessions[token] = session{userID: user.ID, expiresAt: time.Now().Add(a.sessionTTL)}
	a.mu.Unlock()

	a.logger.Info("User logged in", zap.String("username", username))
	return token, nil
}

// ValidateSession returns the session's user id when the token is
// known and not expired. Expired sessions are dropped on lookup.
func (a *AuthService) ValidateSession(token string) (uint, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[token]
	if !ok {
		return 0, false
	}
	if time.Now().After(s.expiresAt) {
		delete(a.sessions, token)
		return 0, false
	}
	return s.userID, true
}

func (a *AuthService) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// AuthMiddleware requires a valid bearer token and stores the caller's
// user id on the request context.
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.JSON(401, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		userID, valid := a.ValidateSession(token)
		if !valid {
			c.JSON(401, gin.H{"error": "Invalid or expired session"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
