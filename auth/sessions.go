package auth

import (
	"fmt"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	satori "github.com/satori/go.uuid"
)

// Session key/TTL convention shared by login and lookup.
const (
	sessionKeyPrefix = "auth_"
	sessionTTL       = 86400 // seconds, 24h fixed expiry
)

// Pool is the slice of redigo's *redis.Pool the session store needs.
type Pool interface {
	Get() redis.Conn
}

// Sessions issues and validates bearer tokens backed by a key-value store
// with per-key expiry. Lookup is always by token so no secondary index
// exists; expiry is fixed at creation and not extended on use.
type Sessions struct {
	cache Pool
}

func NewSessions(cache Pool) *Sessions {
	return &Sessions{cache: cache}
}

// Create generates a random token and binds it to the user for sessionTTL.
// Token collisions are treated as practically impossible and not checked.
func (s *Sessions) Create(userId uuid.UUID) (string, error) {
	token := satori.NewV4().String()

	conn := s.cache.Get()
	defer conn.Close()

	_, err := conn.Do("SETEX", sessionKeyPrefix+token, sessionTTL, userId.String())
	if err != nil {
		return "", err
	}
	return token, nil
}

// Validate resolves a token to the user it was issued for. A missing or
// expired key is not an error, just a miss.
func (s *Sessions) Validate(token string) (uuid.UUID, bool, error) {
	conn := s.cache.Get()
	defer conn.Close()

	response, err := conn.Do("GET", sessionKeyPrefix+token)
	if err != nil {
		return uuid.Nil, false, err
	}
	if response == nil {
		return uuid.Nil, false, nil
	}

	userId, err := uuid.Parse(fmt.Sprintf("%s", response))
	if err != nil {
		return uuid.Nil, false, err
	}
	return userId, true, nil
}

// Revoke deletes the token. Revoking an absent token is not an error here;
// the returned flag tells the caller whether anything was actually removed.
func (s *Sessions) Revoke(token string) (bool, error) {
	conn := s.cache.Get()
	defer conn.Close()

	removed, err := redis.Int(conn.Do("DEL", sessionKeyPrefix+token))
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *Sessions) Alive() bool {
	conn := s.cache.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err == nil
}
