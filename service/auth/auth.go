package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/tunebox/tunebox/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 6
)

// Store is the user persistence the auth service needs
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Issuer signs bearer tokens for users
type Issuer interface {
	Issue(user *models.User) (string, error)
}

// Result is returned by Register and Login
type Result struct {
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    models.UserView `json:"user"`
}

type Service struct {
	store      Store
	tokens     Issuer
	bcryptCost int
	logger     *log.Logger
}

func NewAuthService(store Store, tokens Issuer) *Service {
	logger := log.New(os.Stdout, "auth: ", log.LstdFlags|log.Lmsgprefix)
	return &Service{
		store:      store,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, models.NewError(models.ErrValidation,
			fmt.Sprintf("Username must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	}
	if len(password) < minPasswordLen {
		return nil, models.NewError(models.ErrValidation,
			fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewError(models.ErrConflict, "User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Printf("registered user %s (%s)", user.Username, user.ID)

	return s.result("User created successfully", user)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, models.NewError(models.ErrUnauthorized, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewError(models.ErrUnauthorized, "Invalid credentials")
	}

	return s.result("Login successful", user)
}

// Me returns the user a verified token belongs to
func (s *Service) Me(ctx context.Context, userID string) (*models.UserView, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, models.NewError(models.ErrUnauthorized, "User not found")
	}
	view := user.View()
	return &view, nil
}

func (s *Service) result(message string, user *models.User) (*Result, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Result{Message: message, Token: token, User: user.View()}, nil
}
