package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"seatrotation/internal/domain"
)

const (
	minPasswordLen = 8
	minUsernameLen = 3
)

var (
	emailRegexp    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

type authService struct {
	userRepo  domain.UserRepository
	hasher    domain.PasswordHasher
	issuer    domain.TokenIssuer
	jwtExpiry time.Duration
}

// NewAuthService creates an AuthService with the given repository, hasher and token issuer.
func NewAuthService(userRepo domain.UserRepository, hasher domain.PasswordHasher, issuer domain.TokenIssuer, jwtExpiry time.Duration) domain.AuthService {
	return &authService{
		userRepo:  userRepo,
		hasher:    hasher,
		issuer:    issuer,
		jwtExpiry: jwtExpiry,
	}
}

func (s *authService) SignUp(ctx context.Context, username, email, password string, batch domain.Batch, squad domain.Squad) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if len(username) < minUsernameLen || !usernameRegexp.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be at least %d letters, digits, '.', '_' or '-'", domain.ErrInvalidInput, minUsernameLen)
	}
	if email != "" && !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	if !batch.Valid() {
		return nil, fmt.Errorf("%w: unknown batch %q", domain.ErrInvalidInput, batch)
	}
	if !squad.Valid() {
		return nil, fmt.Errorf("%w: unknown squad %q", domain.ErrInvalidInput, squad)
	}

	n, err := s.userRepo.CountByBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("count batch members: %w", err)
	}
	if n >= domain.BatchMemberLimit {
		return nil, fmt.Errorf("%w: %s is full (limit %d)", domain.ErrLimitReached, batch, domain.BatchMemberLimit)
	}
	n, err = s.userRepo.CountBySquad(ctx, squad)
	if err != nil {
		return nil, fmt.Errorf("count squad members: %w", err)
	}
	if n >= domain.SquadMemberLimit {
		return nil, fmt.Errorf("%w: %s is full (limit %d)", domain.ErrLimitReached, squad, domain.SquadMemberLimit)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := domain.NewUser(username, email, batch, squad, now, now)
	user.PasswordHash = hash
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", domain.ErrInvalidCredentials
	}
	return s.issuer.Issue(user.ID, user.Batch, s.jwtExpiry)
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
