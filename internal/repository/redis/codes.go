package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	codePrefix        = "logincode:"
	codeAttemptSuffix = ":attempts"
)

// CodeStore keeps hashed one-time login codes with a bounded lifetime and
// attempt count.
type CodeStore struct {
	client *Client
	ttl    time.Duration
}

// NewCodeStore creates a new login code store
func NewCodeStore(client *Client, ttl time.Duration) *CodeStore {
	return &CodeStore{client: client, ttl: ttl}
}

// Put stores the hashed code for an email, replacing any outstanding code
// and resetting its attempt counter.
func (s *CodeStore) Put(ctx context.Context, email, codeHash string) error {
	key := codePrefix + email

	pipe := s.client.rdb.Pipeline()
	pipe.Set(ctx, key, codeHash, s.ttl)
	pipe.Del(ctx, key+codeAttemptSuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}
	return nil
}

// Get returns the stored code hash, or "" when no code is outstanding.
func (s *CodeStore) Get(ctx context.Context, email string) (string, error) {
	hash, err := s.client.rdb.Get(ctx, codePrefix+email).Result()
	if err != nil {
		return "", nil // expired or never requested
	}
	return hash, nil
}

// RecordAttempt counts a failed verification and returns the total so far.
func (s *CodeStore) RecordAttempt(ctx context.Context, email string) (int64, error) {
	key := codePrefix + email + codeAttemptSuffix

	pipe := s.client.rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}
	return incrCmd.Val(), nil
}

// Consume removes the outstanding code after a successful verification.
func (s *CodeStore) Consume(ctx context.Context, email string) error {
	key := codePrefix + email
	return s.client.rdb.Del(ctx, key, key+codeAttemptSuffix).Err()
}
