package auth

import (
	"fmt"
	"testing"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_SessionLifecycle(t *testing.T) {
	pool := newFakePool()
	s := NewSessions(pool)

	userId := uuid.New()
	token, err := s.Create(userId)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	got, ok, err := s.Validate(token)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, userId, got)

	removed, err := s.Revoke(token)
	assert.NoError(t, err)
	assert.True(t, removed)

	_, ok, err = s.Validate(token)
	assert.NoError(t, err)
	assert.False(t, ok)

	removed, err = s.Revoke(token)
	assert.NoError(t, err)
	assert.False(t, removed)
}

func Test_ExpiredSession(t *testing.T) {
	pool := newFakePool()
	s := NewSessions(pool)

	token, err := s.Create(uuid.New())
	assert.NoError(t, err)

	pool.expireAll()

	_, ok, err := s.Validate(token)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func Test_TwoSessionsPerUser(t *testing.T) {
	s := NewSessions(newFakePool())

	userId := uuid.New()
	t1, err := s.Create(userId)
	assert.NoError(t, err)
	t2, err := s.Create(userId)
	assert.NoError(t, err)
	assert.NotEqual(t, t1, t2)

	got1, ok, _ := s.Validate(t1)
	assert.True(t, ok)
	got2, ok, _ := s.Validate(t2)
	assert.True(t, ok)
	assert.Equal(t, got1, got2)
}

// fakePool implements Pool over an in-process map so session logic can be
// exercised without a running redis.
type fakePool struct {
	store map[string]string
}

func newFakePool() *fakePool {
	return &fakePool{store: map[string]string{}}
}

func (p *fakePool) Get() redis.Conn {
	return &fakeConn{store: p.store}
}

// expireAll simulates every key hitting its natural TTL.
func (p *fakePool) expireAll() {
	for k := range p.store {
		delete(p.store, k)
	}
}

type fakeConn struct {
	store map[string]string
}

func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) Err() error   { return nil }

func (c *fakeConn) Do(cmd string, args ...interface{}) (interface{}, error) {
	switch cmd {
	case "SETEX":
		c.store[args[0].(string)] = fmt.Sprintf("%v", args[2])
		return "OK", nil
	case "GET":
		v, ok := c.store[args[0].(string)]
		if !ok {
			return nil, nil
		}
		return []byte(v), nil
	case "DEL":
		if _, ok := c.store[args[0].(string)]; ok {
			delete(c.store, args[0].(string))
			return int64(1), nil
		}
		return int64(0), nil
	case "PING":
		return "PONG", nil
	}
	return nil, fmt.Errorf("fakeConn: unsupported command %s", cmd)
}

func (c *fakeConn) Send(cmd string, args ...interface{}) error { return nil }
func (c *fakeConn) Flush() error                               { return nil }
func (c *fakeConn) Receive() (interface{}, error)              { return nil, nil }
