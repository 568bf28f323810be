package auth

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/noisersup/filestore-api/database"
	"github.com/noisersup/filestore-api/models"
)

var ErrUnauthorized = errors.New("unauthorized")

// Auth resolves "current user" from a request token and enforces the
// ownership/visibility rules of the file tree.
type Auth struct {
	sessions *Sessions
	db       models.Metadata
}

func NewAuth(sessions *Sessions, db models.Metadata) *Auth {
	return &Auth{sessions: sessions, db: db}
}

func (a *Auth) Sessions() *Sessions {
	return a.sessions
}

// HashPassword returns the stored form of a password: its sha1 hex digest.
func HashPassword(password string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(password)))
}

// VerifyCredentials checks an email/password pair against the user store.
func (a *Auth) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(HashPassword(password))) != 1 {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// CurrentUser resolves a session token to its user. A session whose user
// has meanwhile vanished from the store counts as unauthorized, not as a
// server failure.
func (a *Auth) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	userId, ok, err := a.sessions.Validate(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	user, err := a.db.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// CanRead reports whether the holder of token (possibly nobody) may read
// the file's content. Public files are readable by anyone, token or not.
// Private files are readable by their owner only; every other case is a
// plain "no" that the boundary turns into 404 so a private file never
// reveals its existence.
func (a *Auth) CanRead(ctx context.Context, f *models.File, token string) bool {
	if f.IsPublic {
		return true
	}
	user, err := a.CurrentUser(ctx, token)
	if err != nil {
		return false
	}
	return user.Id == f.UserId
}
