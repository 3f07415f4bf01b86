package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// defaultWindowSize is the number of recent messages included in prompts.
const defaultWindowSize = 10

// ErrConversationStoreRequired is returned when a conversation store is not provided.
var ErrConversationStoreRequired = errors.New("conversation store required")

// Manager provides conversation lifecycle and windowed history access.
type Manager struct {
	store      storage.ConversationStore
	windowSize int
	locks      sync.Map // conversation id -> *sync.Mutex
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithWindowSize sets the number of recent messages the window holds.
// Values below 1 keep the default.
func WithWindowSize(size int) Option {
	return func(m *Manager) {
		if size >= 1 {
			m.windowSize = size
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
	}
}

// NewManager creates a new conversation memory manager.
func NewManager(store storage.ConversationStore, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrConversationStoreRequired
	}

	m := &Manager{
		store:      store,
		windowSize: defaultWindowSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "memory")
	return m, nil
}

// WindowSize returns the configured window size.
func (m *Manager) WindowSize() int {
	return m.windowSize
}

// Start creates a new empty conversation and returns it.
func (m *Manager) Start(ctx context.Context) (*core.Conversation, error) {
	conv := &core.Conversation{ID: uuid.NewString()}
	if err := m.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	m.logger.Info("conversation started", "conversation", conv.ID)
	return conv, nil
}

// Append validates and appends messages to a conversation under the
// conversation's lock. All messages land or none do.
func (m *Manager) Append(ctx context.Context, conversationID string, messages ...*core.Message) ([]*core.Message, error) {
	for _, msg := range messages {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		if err := core.ValidateMessage(msg); err != nil {
			return nil, err
		}
	}

	lock := m.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	return m.store.AppendMessages(ctx, conversationID, messages...)
}

// Window returns the most recent messages of a conversation in append
// order, bounded by the configured window size. A conversation younger
// than the window yields everything it has.
func (m *Manager) Window(ctx context.Context, conversationID string) ([]*core.Message, error) {
	return m.store.GetRecentMessages(ctx, conversationID, m.windowSize)
}

// FullHistory returns every message of a conversation in append order.
func (m *Manager) FullHistory(ctx context.Context, conversationID string) ([]*core.Message, error) {
	return m.store.GetMessages(ctx, conversationID)
}

// Get returns the conversation record.
func (m *Manager) Get(ctx context.Context, conversationID string) (*core.Conversation, error) {
	return m.store.GetConversation(ctx, conversationID)
}

// List returns all conversations, most recently active first.
func (m *Manager) List(ctx context.Context) ([]*core.Conversation, error) {
	return m.store.ListConversations(ctx)
}

// Delete removes a conversation, its messages, and its cached title.
func (m *Manager) Delete(ctx context.Context, conversationID string) error {
	lock := m.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	m.locks.Delete(conversationID)
	m.logger.Info("conversation deleted", "conversation", conversationID)
	return nil
}

// lockFor returns the mutex guarding one conversation's appends.
func (m *Manager) lockFor(conversationID string) *sync.Mutex {
	actual, _ := m.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
