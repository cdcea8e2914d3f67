package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/database"
	"github.com/safar/fruit-store/internal/models"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone"`
	Role     models.Role `json:"role,omitempty"`
}

// PublicUser is the user view returned to clients.
type PublicUser struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewPublicUser(u *models.User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type Session struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

type Options struct {
	// AllowAdminSignup lets Register create admin accounts.
	AllowAdminSignup bool
}

type Service struct {
	users  UserRepo
	issuer *Issuer
	hasher *Hasher
	opts   Options
	log    *slog.Logger
}

func NewService(users UserRepo, issuer *Issuer, hasher *Hasher, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, issuer: issuer, hasher: hasher, opts: opts, log: log}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)

	if name == "" || email == "" || in.Password == "" || phone == "" {
		return nil, apperr.New(apperr.InvalidInput, "all fields are required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.New(apperr.InvalidInput, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, apperr.New(apperr.InvalidInput, fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}

	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "unknown role")
	}
	if role == models.RoleAdmin && !s.opts.AllowAdminSignup {
		return nil, apperr.New(apperr.Forbidden, "admin accounts cannot be self-registered")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.Conflict, "user already exists")
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, apperr.Wrap(apperr.Conflict, "user already exists", err)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))

	return s.session(user)
}

// Login fails with the same InvalidCredentials error whether the email or
// the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	ok, err := s.hasher.Compare(hash, password)
	if err != nil {
		return nil, err
	}
	if user == nil || !ok || email == "" || password == "" {
		s.log.InfoContext(ctx, "login rejected")
		return nil, apperr.New(apperr.InvalidCredentials, "invalid credentials")
	}

	return s.session(user)
}

// Me returns the stored profile for a verified identity.
func (s *Service) Me(ctx context.Context, id Identity) (PublicUser, error) {
	if err := RequireIdentity(id); err != nil {
		return PublicUser{}, err
	}
	user, err := s.users.GetUser(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return PublicUser{}, apperr.Wrap(apperr.NotFound, "user not found", err)
		}
		return PublicUser{}, err
	}
	return NewPublicUser(user), nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: NewPublicUser(user)}, nil
}
