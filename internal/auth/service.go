// Package auth manages board operators: registration, password checks and
// the tokens that attribute mutations to a caller.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

const MinPasswordLength = 6

type Config struct {
	Store  store.Store
	Tokens *Tokens
	Logger logger.Logger
	Clock  func() time.Time
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

type Service struct {
	store    store.Store
	tokens   *Tokens
	logger   logger.Logger
	now      func() time.Time
	cost     int
	validate *validator.Validate
}

func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Service{
		store:    cfg.Store,
		tokens:   cfg.Tokens,
		logger:   cfg.Logger,
		now:      cfg.Clock,
		cost:     cfg.Cost,
		validate: validator.New(),
	}
}

// Tokens returns the token issuer, nil when tokens are not configured.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	User      domain.User `json:"-"`
}

// Register creates an operator account. Emails are unique ignoring case.
func (s *Service) Register(ctx context.Context, email, password string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.User{}, domain.InvalidInput("a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, domain.InvalidInput("password is too short")
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return domain.User{}, domain.StorageFailure("hash password", err)
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    s.now().UTC(),
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.User(email); err == nil {
			return domain.Conflict("user already exists")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return tx.PutUser(u)
	})
	if err != nil {
		return domain.User{}, store.Wrap("register user", err)
	}

	s.logger.Info("user registered", logger.String("email", email))
	return u, nil
}

// Login verifies credentials and, when tokens are configured, issues one.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = domain.NormalizeEmail(email)

	var u domain.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.User(email)
		return err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return Session{}, domain.Unauthorized("invalid credentials")
	case err != nil:
		return Session{}, store.Wrap("login", err)
	}

	if !CheckPassword(u.PasswordHash, password) {
		s.logger.Warn("login failed", logger.String("email", email))
		return Session{}, domain.Unauthorized("invalid credentials")
	}

	session := Session{User: u}
	if s.tokens != nil {
		token, expires, err := s.tokens.Issue(u)
		if err != nil {
			return Session{}, domain.StorageFailure("issue token", err)
		}
		session.Token = token
		session.ExpiresAt = &expires
	}
	return session, nil
}

// EnsureAdmin seeds the first operator when no users exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	var count int
	err := s.store.View(ctx, func(tx store.Tx) error {
		users, err := tx.Users()
		count = len(users)
		return err
	})
	if err != nil {
		return false, store.Wrap("list users", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.Register(ctx, email, password); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("default admin created", logger.String("email", email))
	return true, nil
}

// HashPassword returns a salted bcrypt hash.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its bcrypt hash in constant time.
func CheckPassword(hash, password string) bool {
	if !strings.HasPrefix(hash, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
