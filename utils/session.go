package utils

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/nowmirror_backend/config"
)

var ErrSessionNotFound = errors.New("session not found")

// Session holds the remote system's tokens for a cookie-based caller.
type Session struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionStore abstracts session persistence so a multi-process deployment
// can share sessions through an external cache.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

const sessionKeyPrefix = "Session:"

// RedisSessionStore keeps sessions in redis with a sliding TTL.
type RedisSessionStore struct {
	TTL time.Duration
}

func NewRedisSessionStore() *RedisSessionStore {
	hours := 8
	if v := os.Getenv("SESSION_HOUR_LIFESPAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	return &RedisSessionStore{TTL: time.Duration(hours) * time.Hour}
}

func (r *RedisSessionStore) Create(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return config.SetRedisObject(sessionKeyPrefix+s.ID, s, r.TTL)
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	exists, err := config.GetRedisObject(sessionKeyPrefix+id, &s)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisSessionStore) Update(ctx context.Context, s *Session) error {
	if s.ID == "" {
		return ErrSessionNotFound
	}
	return config.SetRedisObject(sessionKeyPrefix+s.ID, s, r.TTL)
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return config.RemoveRedisKey(sessionKeyPrefix + id)
}
