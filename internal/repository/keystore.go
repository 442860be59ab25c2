package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyStore guarda o conjunto de chaves já notificadas (IDs de evento, avisos de uso).
// Mark é idempotente: marcar duas vezes a mesma chave não é erro.
type KeyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type sqliteKeyStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteKeyStore grava as chaves na tabela notification_keys.
func NewSQLiteKeyStore(db *sql.DB) KeyStore {
	return &sqliteKeyStore{db: db, now: time.Now}
}

func (s *sqliteKeyStore) Seen(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM notification_keys WHERE key = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteKeyStore) Mark(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO notification_keys(key, created_at) VALUES(?, ?)",
		key, s.now().Unix(),
	)
	return err
}

type redisKeyStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisKeyStore guarda as chaves no Redis com expiração. ttl <= 0 significa sem expiração.
func NewRedisKeyStore(client redis.UniversalClient, ttl time.Duration) KeyStore {
	return &redisKeyStore{
		client: client,
		prefix: "billing:notified:",
		ttl:    ttl,
	}
}

func (s *redisKeyStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisKeyStore) Mark(ctx context.Context, key string) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.SetNX(ctx, s.prefix+key, time.Now().Unix(), ttl).Err()
}
