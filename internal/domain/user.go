package domain

import (
	"context"
	"time"
)

// Membership limits carried over from the sign-up rules.
const (
	BatchMemberLimit = 50
	SquadMemberLimit = 15
)

// User represents a registered member.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Batch        Batch     `json:"batch"`
	Squad        Squad     `json:"squad"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new User with the given fields. ID is typically set by the repository on create.
func NewUser(username, email string, batch Batch, squad Squad, createdAt, updatedAt time.Time) *User {
	return &User{
		Username:  username,
		Email:     email,
		Batch:     batch,
		Squad:     squad,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID string, batch Batch, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	CountByBatch(ctx context.Context, batch Batch) (int, error)
	CountBySquad(ctx context.Context, squad Squad) (int, error)
}

// AuthService defines sign-up, login and identity lookup.
type AuthService interface {
	SignUp(ctx context.Context, username, email, password string, batch Batch, squad Squad) (*User, error)
	Login(ctx context.Context, username, password string) (string, error)
	CurrentUser(ctx context.Context, userID string) (*User, error)
}
