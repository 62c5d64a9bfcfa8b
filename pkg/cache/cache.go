// Package cache provides a badger-backed generation cache. Wrapping a client
// in a CachedClient makes interrupted runs resumable: identical prompts hit
// the store instead of the service.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/synthmem/pkg/nlp"
	"github.com/soundprediction/synthmem/pkg/types"
)

// Store persists generation responses keyed by prompt digest.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Options tunes the store. The zero value keeps entries forever.
type Options struct {
	// TTL expires cached entries after this duration; zero means no expiry.
	TTL time.Duration
	// InMemory runs badger without touching disk, for tests.
	InMemory bool
}

// Open opens (or creates) a cache store at dir.
func Open(dir string, opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(dir)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, ttl: opts.TTL}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up a cached response. The second return is false on a miss.
func (s *Store) Get(key string) (*types.Response, bool, error) {
	var resp types.Response
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &resp)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

// Put stores a response under key.
func (s *Store) Put(key string, resp *types.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Key derives a deterministic cache key from a call's messages and mode.
func Key(mode string, messages []types.Message) string {
	h := sha256.New()
	h.Write([]byte(mode))
	for _, m := range messages {
		h.Write([]byte{0})
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CachedClient wraps a Client with prompt-keyed response caching.
type CachedClient struct {
	client nlp.Client
	store  *Store
	logger *slog.Logger
}

// NewCachedClient creates the caching wrapper. logger may be nil.
func NewCachedClient(client nlp.Client, store *Store, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{client: client, store: store, logger: logger}
}

// Chat implements nlp.Client with read-through caching.
func (c *CachedClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.lookup(ctx, "chat", messages, func() (*types.Response, error) {
		return c.client.Chat(ctx, messages)
	})
}

// ChatWithStructuredOutput implements nlp.Client with read-through caching.
func (c *CachedClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return c.lookup(ctx, "structured", messages, func() (*types.Response, error) {
		return c.client.ChatWithStructuredOutput(ctx, messages, schema)
	})
}

func (c *CachedClient) lookup(ctx context.Context, mode string, messages []types.Message, call func() (*types.Response, error)) (*types.Response, error) {
	key := Key(mode, messages)

	cached, hit, err := c.store.Get(key)
	if err != nil {
		c.logger.Warn("cache read failed", "error", err)
	} else if hit {
		return cached, nil
	}

	resp, err := call()
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(key, resp); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
	return resp, nil
}

// Close closes the wrapped client. The store is owned by the caller.
func (c *CachedClient) Close() error {
	return c.client.Close()
}
