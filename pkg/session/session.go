package session

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Header carries the session token in both directions.
const Header = "X-Session-ID"

var ErrNoSession = errors.New("session not found")

type Session struct {
	Id           string
	CreatedAt    time.Time
	LastAccessed time.Time
}

type contextKey string

const sessionKey contextKey = "session"

// CurrentId returns the id of the session bound to ctx, or ErrNoSession.
func CurrentId(ctx context.Context) (string, error) {
	id, ok := ctx.Value(sessionKey).(string)
	if !ok || id == "" {
		log.Trace("session not found in context")
		return "", ErrNoSession
	}
	return id, nil
}

func WithId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}
