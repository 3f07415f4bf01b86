package titles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/storage"
)

// Placeholder is shown for conversations without a derived title yet.
const Placeholder = "New Chat"

// refreshTimeout bounds one background title generation.
const refreshTimeout = 30 * time.Second

const titlePromptTemplate = `Write a short title for the following conversation.
Reply with the title only: at most six words, no quotes, no trailing punctuation.

Conversation:
%s`

var (
	// ErrMemoryRequired is returned when a memory manager is not provided.
	ErrMemoryRequired = errors.New("memory manager required")

	// ErrTitleStoreRequired is returned when a title store is not provided.
	ErrTitleStoreRequired = errors.New("title store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")
)

// Cache caches derived conversation titles over the title store.
type Cache struct {
	memory    *memory.Manager
	store     storage.TitleStore
	generator ai.Generator
	pool      *ants.Pool
	inflight  sync.Map // conversation id -> struct{}
	logger    *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache) error

// WithPoolSize sets the worker pool size for background refreshes.
// Default is 2.
func WithPoolSize(size int) Option {
	return func(c *Cache) error {
		if size < 1 {
			size = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCache creates a new title cache.
func NewCache(mem *memory.Manager, store storage.TitleStore, provider ai.Provider, opts ...Option) (*Cache, error) {
	if mem == nil {
		return nil, ErrMemoryRequired
	}
	if store == nil {
		return nil, ErrTitleStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	pool, err := ants.NewPool(2)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		memory:    mem,
		store:     store,
		generator: provider.Generator(),
		pool:      pool,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			c.Release()
			return nil, optErr
		}
	}
	c.logger = c.logger.With("component", "titles")
	return c, nil
}

// List returns titles for all conversations, most recently active first.
// Cached titles are returned as stored; conversations without one get the
// placeholder now and a background refresh for later listings.
func (c *Cache) List(ctx context.Context) ([]*core.ConversationTitle, error) {
	conversations, err := c.memory.List(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]*core.ConversationTitle, 0, len(conversations))
	for _, conv := range conversations {
		title, err := c.store.GetTitle(ctx, conv.ID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
			title = &core.ConversationTitle{
				ConversationID: conv.ID,
				Title:          Placeholder,
			}
			c.Refresh(conv.ID)
		}
		titles = append(titles, title)
	}
	return titles, nil
}

// Refresh schedules a background title refresh for a conversation.
// A refresh already in flight for the same conversation is not duplicated.
func (c *Cache) Refresh(conversationID string) {
	if _, loaded := c.inflight.LoadOrStore(conversationID, struct{}{}); loaded {
		return
	}

	err := c.pool.Submit(func() {
		defer c.inflight.Delete(conversationID)

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if _, err := c.RefreshNow(ctx, conversationID); err != nil {
			c.logger.Warn("background title refresh failed", "conversation", conversationID, "err", err)
		}
	})
	if err != nil {
		c.inflight.Delete(conversationID)
		c.logger.Warn("title refresh pool rejected task", "conversation", conversationID, "err", err)
	}
}

// RefreshNow derives the title from the full conversation transcript and
// caches it, returning the result synchronously. A conversation
// with no messages yields the placeholder, which is not cached so a later
// refresh can still produce a real title.
func (c *Cache) RefreshNow(ctx context.Context, conversationID string) (string, error) {
	history, err := c.memory.FullHistory(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return Placeholder, nil
	}

	prompt := fmt.Sprintf(titlePromptTemplate, renderTranscript(history))
	response, err := c.generator.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	title := cleanTitle(response)
	if title == "" {
		return Placeholder, nil
	}

	err = c.store.PutTitle(ctx, &core.ConversationTitle{
		ConversationID: conversationID,
		Title:          title,
	})
	if err != nil {
		return "", err
	}
	c.logger.Debug("title refreshed", "conversation", conversationID, "title", title)
	return title, nil
}

// Evict removes the cached title for a conversation.
func (c *Cache) Evict(ctx context.Context, conversationID string) error {
	return c.store.DeleteTitle(ctx, conversationID)
}

// Release releases the background worker pool.
// The cache should not be used after calling Release.
func (c *Cache) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// renderTranscript renders messages as role-tagged lines.
func renderTranscript(messages []*core.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Text)
	}
	return b.String()
}

// cleanTitle normalizes a model response into a display title.
func cleanTitle(response string) string {
	title := strings.TrimSpace(response)
	// Keep only the first line; some models add commentary after it.
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.Trim(title, `"'`)
	title = strings.TrimRight(title, ".!")
	return strings.TrimSpace(title)
}
