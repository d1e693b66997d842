package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookmarket-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client holds session tokens and the book detail cache
type Client struct {
	rdb     *redis.Client
	bookTTL time.Duration
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int, bookTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, bookTTL: bookTTL}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func sessionKey(token string) string { return "session:" + token }

func bookKey(id int64) string { return fmt.Sprintf("book:%d", id) }

// SaveSession stores the identity behind a token until ttl elapses
func (c *Client) SaveSession(ctx context.Context, token string, identity *models.Identity, ttl time.Duration) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.rdb.Set(ctx, sessionKey(token), data, ttl).Err()
}

// LoadSession returns the identity behind a token, or nil if it is unknown or expired
func (c *Client) LoadSession(ctx context.Context, token string) (*models.Identity, error) {
	data, err := c.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var identity models.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &identity, nil
}

// DeleteSession revokes a token
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}

// GetBook returns a cached book, or nil on a miss
func (c *Client) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	data, err := c.rdb.Get(ctx, bookKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached book: %w", err)
	}
	return &book, nil
}

// SetBook caches a book for the configured TTL
func (c *Client) SetBook(ctx context.Context, book *models.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}
	return c.rdb.Set(ctx, bookKey(book.ID), data, c.bookTTL).Err()
}

// InvalidateBooks evicts cached books in one pipeline
func (c *Client) InvalidateBooks(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, bookKey(id))
	}
	_, err := pipe.Exec(ctx)
	return err
}
