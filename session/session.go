// Package session stores the sessions that authenticated users are bound to.
//
// The resolver only ever reads the user stashed on a session; stores are
// responsible for keeping that state intact between requests. Three
// implementations are provided: MemoryStore for single-instance deployments
// and tests, RedisStore and PostgresStore for deployments that run several
// replicas behind the proxy.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/chatgate/obo-identity/core"
)

// ErrNotFound is returned when no live session exists for an ID.
var ErrNotFound = errors.New("session not found")

// Store persists sessions by ID. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (*core.Session, error)
	Save(ctx context.Context, sess *core.Session) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a random session identifier.
func NewID() string {
	return uuid.NewString()
}

func validate(sess *core.Session) error {
	if sess == nil {
		return errors.New("session missing")
	}
	if sess.ID == "" {
		return errors.New("session id missing")
	}
	return nil
}
