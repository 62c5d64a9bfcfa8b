package cache

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/synthmem/pkg/types"
)

type countingClient struct {
	calls int
}

func (c *countingClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	c.calls++
	return &types.Response{Content: "generated"}, nil
}

func (c *countingClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	c.calls++
	return &types.Response{Content: `{"ok": true}`}, nil
}

func (c *countingClient) Close() error { return nil }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("", Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)

	resp := &types.Response{Content: "hello", Model: "test-model"}
	require.NoError(t, store.Put("k", resp))

	got, hit, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, resp, got)
}

func TestStoreMiss(t *testing.T) {
	store := openTestStore(t)

	_, hit, err := store.Get("absent")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCachedClientSecondCallHits(t *testing.T) {
	store := openTestStore(t)
	inner := &countingClient{}
	client := NewCachedClient(inner, store, slog.New(slog.DiscardHandler))

	messages := []types.Message{{Role: "user", Content: "prompt"}}

	first, err := client.Chat(context.Background(), messages)
	require.NoError(t, err)
	second, err := client.Chat(context.Background(), messages)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "second call served from cache")
}

func TestCachedClientModesDoNotCollide(t *testing.T) {
	store := openTestStore(t)
	inner := &countingClient{}
	client := NewCachedClient(inner, store, slog.New(slog.DiscardHandler))

	messages := []types.Message{{Role: "user", Content: "prompt"}}

	_, err := client.Chat(context.Background(), messages)
	require.NoError(t, err)
	_, err = client.ChatWithStructuredOutput(context.Background(), messages, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "chat and structured calls cache separately")
}

func TestKeyDeterministic(t *testing.T) {
	a := []types.Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}}
	b := []types.Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}}
	assert.Equal(t, Key("chat", a), Key("chat", b))
	assert.NotEqual(t, Key("chat", a), Key("structured", a))

	// Role/content boundaries must matter.
	c := []types.Message{{Role: "system", Content: "su"}}
	d := []types.Message{{Role: "systems", Content: "u"}}
	assert.NotEqual(t, Key("chat", c), Key("chat", d))
}
