// Package user is the account directory: registration, login, password
// reset and profile edits.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-gin-timeclock/internal/core/cache"
	"go-gin-timeclock/internal/domain"
)

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Check(pw, hashed string) bool
}

type TokenIssuer interface {
	Issue(userID uint, email, role string) (string, error)
}

type Service struct {
	users      domain.UserRepository
	hasher     PasswordHasher
	tokens     TokenIssuer
	cache      *cache.Cache
	profileTTL time.Duration
	log        *zap.Logger
}

type Deps struct {
	Users      domain.UserRepository
	Hasher     PasswordHasher
	Tokens     TokenIssuer
	Cache      *cache.Cache // optional
	ProfileTTL time.Duration
	Log        *zap.Logger
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.ProfileTTL <= 0 {
		d.ProfileTTL = 5 * time.Minute
	}
	return &Service{
		users:      d.Users,
		hasher:     d.Hasher,
		tokens:     d.Tokens,
		cache:      d.Cache,
		profileTTL: d.ProfileTTL,
		log:        d.Log,
	}
}

func profileKey(id uint) string { return fmt.Sprintf("user:profile:%d", id) }

type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func checkPasswords(pw, confirm string) error {
	if pw == "" || confirm == "" {
		return domain.Invalid("password", "Password and confirm password are required.")
	}
	if pw != confirm {
		return domain.Invalid("confirmPassword", "Password and confirm password do not match.")
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" {
		return nil, domain.Invalid("name", "Name is required.")
	}
	if email == "" {
		return nil, domain.Invalid("email", "Email is required.")
	}
	if err := checkPasswords(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: domain.RoleUser}
	// the unique index still decides between concurrent registrations
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.Uint("user_id", u.ID))
	return u, nil
}

type LoginResult struct {
	AccessToken string
	User        *domain.User
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("email", "Email and password are required.")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil || !s.hasher.Check(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{AccessToken: tok, User: u}, nil
}

func (s *Service) VerifyEmail(ctx context.Context, email string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return false, domain.Invalid("email", "Email is required.")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	return u != nil, nil
}

func (s *Service) UpdatePassword(ctx context.Context, email, password, confirm string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Invalid("email", "Email, password, and confirm password are required.")
	}
	if err := checkPasswords(password, confirm); err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.invalidate(ctx, u.ID)
	s.log.Info("password updated", zap.Uint("user_id", u.ID))
	return nil
}

type EditProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (s *Service) EditProfile(ctx context.Context, userID uint, in EditProfileInput) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}

	if in.Email != nil {
		if email := domain.NormalizeEmail(*in.Email); email != "" {
			taken, err := s.users.EmailTakenByOther(ctx, email, userID)
			if err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if taken {
				return nil, domain.ErrEmailTaken
			}
			u.Email = email
		}
	}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			u.Name = name
		}
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.invalidate(ctx, u.ID)
	return u, nil
}

// Profile reads through the profile cache when one is configured.
func (s *Service) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	return cache.GetOrLoadJSON(s.cache, ctx, profileKey(userID), s.profileTTL, func(ctx context.Context) (*domain.User, error) {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
		if u == nil {
			// returned as an error so misses are never cached
			return nil, domain.ErrUserNotFound
		}
		return u, nil
	})
}

type ListInput struct {
	Query  string
	Offset int
	Limit  int
}

func (s *Service) List(ctx context.Context, in ListInput) ([]domain.User, int64, error) {
	users, total, err := s.users.List(ctx, domain.UserFilter{Query: in.Query, Offset: in.Offset, Limit: in.Limit})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Promote grants the admin role.
func (s *Service) Promote(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	u.Role = domain.RoleAdmin
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.invalidate(ctx, u.ID)
	return u, nil
}

func (s *Service) invalidate(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, profileKey(id)); err != nil {
		s.log.Warn("profile cache invalidation failed", zap.Uint("user_id", id), zap.Error(err))
	}
}
