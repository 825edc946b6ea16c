package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-ledger-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-ledger-go/pkg/database"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Repo is the persistence port the service depends on.
type Repo interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// TokenIssuer turns an authenticated identity into a bearer token.
type TokenIssuer interface {
	Issue(id auth.Identity, email string) (string, error)
}

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrNotFound       = errors.New("user not found")
)

// Service orchestrates registration, login and profile reads.
type Service struct {
	repo   Repo
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewService(repo Repo, tokens TokenIssuer, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: repo, hasher: hasher, tokens: tokens}
}

// Register creates a user with a hashed password. An empty role defaults to
// customer; anything other than the two known roles is rejected upstream by
// request validation.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*entity.User, error) {
	if role == "" {
		role = auth.RoleCustomer
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login verifies credentials and returns a signed token plus the user.
// Unknown email and wrong password yield the same error to avoid user
// enumeration.
func (s *Service) Login(ctx context.Context, email, password string) (string, *entity.User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return "", nil, ErrBadCredentials
	}
	token, err := s.tokens.Issue(auth.Identity{ID: u.ID, Role: u.Role}, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Profile returns the caller's own user record.
func (s *Service) Profile(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
