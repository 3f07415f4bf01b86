package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/retrieval"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEngine struct {
	engine   *Engine
	memory   *memory.Manager
	stores   *badger.MemoryStores
	provider *mock.MockProvider
}

func newTestEngine(t *testing.T, opts ...Option) *testEngine {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockGenerator().Response = "the answer is twenty days"

	mem, err := memory.NewManager(stores.Conversations)
	require.NoError(t, err)

	retriever, err := retrieval.NewRetriever(provider.Embedder(), stores.Index)
	require.NoError(t, err)

	engine, err := NewEngine(mem, retriever, provider, opts...)
	require.NoError(t, err)

	return &testEngine{engine: engine, memory: mem, stores: stores, provider: provider}
}

func TestChat_StartsConversationOnEmptyID(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	result, err := te.engine.Chat(ctx, "", "how much vacation do I get?", nil)
	require.NoError(t, err)
	assert.True(t, result.Started)
	require.NotEmpty(t, result.ConversationID)
	assert.Equal(t, "the answer is twenty days", result.Answer)

	history, err := te.memory.FullHistory(ctx, result.ConversationID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "how much vacation do I get?", history[0].Text)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, "the answer is twenty days", history[1].Text)
}

func TestChat_ContinuesExistingConversation(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	first, err := te.engine.Chat(ctx, "", "first question", nil)
	require.NoError(t, err)

	second, err := te.engine.Chat(ctx, first.ConversationID, "second question", nil)
	require.NoError(t, err)
	assert.False(t, second.Started)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	history, err := te.memory.FullHistory(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestChat_UnknownIDStartsFresh(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	result, err := te.engine.Chat(ctx, "11111111-2222-3333-4444-555555555555", "hello", nil)
	require.NoError(t, err)
	assert.True(t, result.Started)
	assert.NotEqual(t, "11111111-2222-3333-4444-555555555555", result.ConversationID)
}

func TestChat_EmptyQuestion(t *testing.T) {
	te := newTestEngine(t)

	_, err := te.engine.Chat(context.Background(), "", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestChat_StreamsDeltas(t *testing.T) {
	te := newTestEngine(t)

	var streamed strings.Builder
	result, err := te.engine.Chat(context.Background(), "", "question", func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, result.Answer, streamed.String())
}

func TestChat_GenerationFailureWritesNothing(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	// Establish the conversation with a good turn first.
	first, err := te.engine.Chat(ctx, "", "good question", nil)
	require.NoError(t, err)

	te.provider.GetMockGenerator().StreamCompleteFunc = func(ctx context.Context, prompt string, onDelta func(chunk string) error) (string, error) {
		return "", errors.New("generation backend down")
	}

	_, err = te.engine.Chat(ctx, first.ConversationID, "doomed question", nil)
	require.Error(t, err)

	history, err := te.memory.FullHistory(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "failed turn must not appear in history")
}

func TestChat_AbandonedStreamWritesNothing(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	first, err := te.engine.Chat(ctx, "", "good question", nil)
	require.NoError(t, err)

	clientGone := errors.New("client disconnected")
	_, err = te.engine.Chat(ctx, first.ConversationID, "interrupted question", func(chunk string) error {
		return clientGone
	})
	require.Error(t, err)

	history, err := te.memory.FullHistory(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "abandoned turn must not appear in history")
}

func TestChat_RetrievalFailureDegrades(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	te.provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding backend down")
	}

	result, err := te.engine.Chat(ctx, "", "question without retrieval", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.NotEmpty(t, result.Answer)

	history, err := te.memory.FullHistory(ctx, result.ConversationID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestChat_GroundedPromptCarriesContext(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	te.provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	err := te.stores.Index.UpsertChunks(ctx, &core.Chunk{
		ID:     core.ChunkID("doc-1", 0, "Vacation is twenty days per year."),
		Text:   "Vacation is twenty days per year.",
		Vector: []float32{0.9, 0},
		Metadata: core.ChunkMetadata{
			DocID:  "doc-1",
			Source: "handbook.pdf",
		},
	})
	require.NoError(t, err)

	result, err := te.engine.Chat(ctx, "", "how much vacation?", nil)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	prompts := te.provider.GetMockGenerator().Prompts()
	require.NotEmpty(t, prompts)
	lastPrompt := prompts[len(prompts)-1]
	assert.Contains(t, lastPrompt, "Vacation is twenty days per year.")
	assert.Contains(t, lastPrompt, "handbook.pdf")
}

func TestChat_WindowBoundsPrompt(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	result, err := te.engine.Chat(ctx, "", "turn 0", nil)
	require.NoError(t, err)
	for i := 1; i < 7; i++ {
		_, err := te.engine.Chat(ctx, result.ConversationID, "filler turn", nil)
		require.NoError(t, err)
	}

	_, err = te.engine.Chat(ctx, result.ConversationID, "latest question", nil)
	require.NoError(t, err)

	prompts := te.provider.GetMockGenerator().Prompts()
	lastPrompt := prompts[len(prompts)-1]
	// 14 messages exist before the final turn; only the last 10 fit the
	// window, so the very first turn has scrolled out.
	assert.NotContains(t, lastPrompt, "turn 0")
	assert.Contains(t, lastPrompt, "filler turn")
}

func TestChat_TurnCompleteHook(t *testing.T) {
	var hooked []string
	te := newTestEngine(t, WithTurnCompleteHook(func(conversationID string) {
		hooked = append(hooked, conversationID)
	}))

	result, err := te.engine.Chat(context.Background(), "", "question", nil)
	require.NoError(t, err)
	require.Len(t, hooked, 1)
	assert.Equal(t, result.ConversationID, hooked[0])
}

func TestChat_MonitorCallbacks(t *testing.T) {
	te := newTestEngine(t)

	mon := &recordingMonitor{}
	_, err := te.engine.ChatWithMonitor(context.Background(), "", "question", nil, mon)
	require.NoError(t, err)

	assert.True(t, mon.started)
	assert.True(t, mon.conversationStarted)
	assert.True(t, mon.promptBuilt)
	assert.True(t, mon.finished)
	assert.Greater(t, mon.deltas, 0)
	assert.False(t, mon.failed)
}

type recordingMonitor struct {
	started             bool
	conversationStarted bool
	promptBuilt         bool
	deltas              int
	finished            bool
	failed              bool
}

var _ TurnMonitor = (*recordingMonitor)(nil)

func (m *recordingMonitor) Start(_, _ string)                   { m.started = true }
func (m *recordingMonitor) ConversationStarted(_ string)        { m.conversationStarted = true }
func (m *recordingMonitor) AfterRetrieval(_ []*core.ChunkMatch) {}
func (m *recordingMonitor) RetrievalDegraded(_ error)           {}
func (m *recordingMonitor) PromptBuilt(_ string)                { m.promptBuilt = true }
func (m *recordingMonitor) Delta(_ string)                      { m.deltas++ }
func (m *recordingMonitor) Finish(_ string)                     { m.finished = true }
func (m *recordingMonitor) Failed(_ error)                      { m.failed = true }
