// Package paste is an ephemeral output-hosting store. Long command output is
// parked in redis under a short TTL and served back as a shareable URL, so
// chat-sized replies can link to the full capture.
package paste

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"github.com/d1337/sandboxd/internal/apperror"
)

const (
	// TTL is how long a paste stays retrievable.
	TTL = 20 * time.Minute

	keyPrefix = "d1337:paste:"
)

// Paste is the stored payload for one execution's output.
type Paste struct {
	Content         string    `json:"content"`
	Command         string    `json:"command"`
	ExitCode        int       `json:"exit_code"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store persists pastes in redis.
type Store struct {
	client  *redis.Client
	baseURL string
}

// NewStore connects to redis at addr and verifies the connection. baseURL is
// the externally visible prefix for paste links, without a trailing slash.
func NewStore(addr, baseURL string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("paste: connecting to redis: %w", err)
	}

	return &Store{client: client, baseURL: baseURL}, nil
}

// Close releases the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// CreatePaste stores one execution's output and returns its URL. The paste
// expires after TTL.
func (s *Store) CreatePaste(ctx context.Context, content, command string, exitCode int, executionTimeMS int64) (string, error) {
	p := Paste{
		Content:         content,
		Command:         command,
		ExitCode:        exitCode,
		ExecutionTimeMS: executionTimeMS,
		CreatedAt:       time.Now().UTC(),
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("paste: encoding payload: %w", err)
	}

	id := xid.New().String()
	if err := s.client.SetEx(ctx, keyPrefix+id, data, TTL).Err(); err != nil {
		return "", fmt.Errorf("paste: storing paste: %w", err)
	}

	return fmt.Sprintf("%s/p/%s", s.baseURL, id), nil
}

// Get fetches a paste by ID. Missing and expired pastes both come back as
// apperror.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Paste, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperror.NotFound("paste", id)
		}
		return nil, fmt.Errorf("paste: fetching paste %s: %w", id, err)
	}

	var p Paste
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("paste: decoding paste %s: %w", id, err)
	}
	return &p, nil
}
