package titles

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCache struct {
	cache    *Cache
	memory   *memory.Manager
	stores   *badger.MemoryStores
	provider *mock.MockProvider
}

func newTestCache(t *testing.T) *testCache {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockGenerator().Response = "Vacation Policy Questions"

	mem, err := memory.NewManager(stores.Conversations)
	require.NoError(t, err)

	cache, err := NewCache(mem, stores.Titles, provider)
	require.NoError(t, err)
	t.Cleanup(cache.Release)

	return &testCache{cache: cache, memory: mem, stores: stores, provider: provider}
}

func (tc *testCache) startConversationWithTurn(t *testing.T, text string) *core.Conversation {
	t.Helper()
	ctx := context.Background()
	conv, err := tc.memory.Start(ctx)
	require.NoError(t, err)
	_, err = tc.memory.Append(ctx, conv.ID,
		&core.Message{Role: core.RoleUser, Text: text},
		&core.Message{Role: core.RoleAssistant, Text: "an answer"},
	)
	require.NoError(t, err)
	return conv
}

func TestRefreshNow_DerivesAndCaches(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()
	conv := tc.startConversationWithTurn(t, "how much vacation do I get?")

	title, err := tc.cache.RefreshNow(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vacation Policy Questions", title)

	cached, err := tc.stores.Titles.GetTitle(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vacation Policy Questions", cached.Title)
}

func TestRefreshNow_EmptyConversation(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()
	conv, err := tc.memory.Start(ctx)
	require.NoError(t, err)

	title, err := tc.cache.RefreshNow(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, Placeholder, title)

	// Placeholder is not cached; a later refresh can still upgrade it.
	_, err = tc.stores.Titles.GetTitle(ctx, conv.ID)
	assert.Error(t, err)
	assert.Equal(t, 0, tc.provider.GetMockGenerator().CallCount())
}

func TestRefreshNow_TranscriptInPrompt(t *testing.T) {
	tc := newTestCache(t)
	conv := tc.startConversationWithTurn(t, "a very specific question about parental leave")

	_, err := tc.cache.RefreshNow(context.Background(), conv.ID)
	require.NoError(t, err)

	prompts := tc.provider.GetMockGenerator().Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "user: a very specific question about parental leave")
	assert.Contains(t, prompts[0], "assistant: an answer")
}

func TestRefreshNow_UsesFullTranscript(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()
	conv := tc.startConversationWithTurn(t, "tell me about the relocation package")

	// Push the opening exchange well past the recent-messages window.
	for i := 0; i < 12; i++ {
		_, err := tc.memory.Append(ctx, conv.ID,
			&core.Message{Role: core.RoleUser, Text: "a follow-up question"},
		)
		require.NoError(t, err)
	}

	window, err := tc.memory.Window(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, window, 10)
	require.NotEqual(t, "tell me about the relocation package", window[0].Text)

	_, err = tc.cache.RefreshNow(ctx, conv.ID)
	require.NoError(t, err)

	prompts := tc.provider.GetMockGenerator().Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "user: tell me about the relocation package")
}

func TestList_PlaceholderBeforeRefresh(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()
	conv := tc.startConversationWithTurn(t, "a question")

	titles, err := tc.cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, conv.ID, titles[0].ConversationID)
	assert.Equal(t, Placeholder, titles[0].Title)

	// The background refresh fills the cache for the next listing.
	require.Eventually(t, func() bool {
		titles, err := tc.cache.List(ctx)
		if err != nil || len(titles) != 1 {
			return false
		}
		return titles[0].Title == "Vacation Policy Questions"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestList_RecencyOrder(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()

	older := tc.startConversationWithTurn(t, "first conversation")
	time.Sleep(2 * time.Millisecond)
	newer := tc.startConversationWithTurn(t, "second conversation")

	titles, err := tc.cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, newer.ID, titles[0].ConversationID)
	assert.Equal(t, older.ID, titles[1].ConversationID)
}

func TestRefresh_DeduplicatesInFlight(t *testing.T) {
	tc := newTestCache(t)
	conv := tc.startConversationWithTurn(t, "a question")

	var calls atomic.Int32
	release := make(chan struct{})
	tc.provider.GetMockGenerator().CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		<-release
		return "Derived Title", nil
	}

	for i := 0; i < 5; i++ {
		tc.cache.Refresh(conv.ID)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.Eventually(t, func() bool {
		_, err := tc.stores.Titles.GetTitle(context.Background(), conv.ID)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefreshNow_GenerationFailure(t *testing.T) {
	tc := newTestCache(t)
	conv := tc.startConversationWithTurn(t, "a question")

	tc.provider.GetMockGenerator().CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("generation backend down")
	}

	_, err := tc.cache.RefreshNow(context.Background(), conv.ID)
	assert.Error(t, err)
}

func TestEvict(t *testing.T) {
	tc := newTestCache(t)
	ctx := context.Background()
	conv := tc.startConversationWithTurn(t, "a question")

	_, err := tc.cache.RefreshNow(ctx, conv.ID)
	require.NoError(t, err)
	require.NoError(t, tc.cache.Evict(ctx, conv.ID))

	_, err = tc.stores.Titles.GetTitle(ctx, conv.ID)
	assert.Error(t, err)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"plain", "Vacation Policy", "Vacation Policy"},
		{"quoted", `"Vacation Policy"`, "Vacation Policy"},
		{"trailing period", "Vacation Policy.", "Vacation Policy"},
		{"multi line", "Vacation Policy\nHere is why I chose it", "Vacation Policy"},
		{"whitespace only", "   \n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanTitle(tt.response))
		})
	}
}
