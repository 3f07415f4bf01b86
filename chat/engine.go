package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/retrieval"
	"github.com/poiesic/docchat/storage"
)

// TurnResult is the outcome of one completed conversation turn.
type TurnResult struct {
	ConversationID string
	Answer         string
	Matches        []*core.ChunkMatch
	// Started is true when the turn created the conversation, either
	// because no id was given or the given id was unknown.
	Started bool
}

// DeltaFunc receives answer fragments as they stream from the model.
// Returning an error abandons the turn; nothing is persisted.
type DeltaFunc func(chunk string) error

// Engine runs conversation turns.
type Engine struct {
	memory    *memory.Manager
	retriever *retrieval.Retriever
	assembler *retrieval.Assembler
	generator ai.Generator
	// onTurnComplete runs after a turn persists, outside the turn's
	// critical path. Used to refresh the conversation's title.
	onTurnComplete func(conversationID string)
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTurnCompleteHook sets a callback invoked with the conversation id
// after each successfully persisted turn.
func WithTurnCompleteHook(fn func(conversationID string)) Option {
	return func(e *Engine) {
		e.onTurnComplete = fn
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// NewEngine creates a new chat engine.
func NewEngine(
	mem *memory.Manager,
	retriever *retrieval.Retriever,
	provider ai.Provider,
	opts ...Option,
) (*Engine, error) {
	if mem == nil {
		return nil, ErrMemoryRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		memory:    mem,
		retriever: retriever,
		assembler: retrieval.NewAssembler(),
		generator: provider.Generator(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "chat")
	return e, nil
}

// Chat runs one turn. An empty conversationID starts a new conversation;
// an unknown one does too, so a stale client id never fails a turn.
// Deltas stream to onDelta as they arrive; onDelta may be nil.
func (e *Engine) Chat(ctx context.Context, conversationID, question string, onDelta DeltaFunc) (*TurnResult, error) {
	return e.ChatWithMonitor(ctx, conversationID, question, onDelta, nil)
}

// ChatWithMonitor runs one turn with monitoring. The monitor receives
// callbacks at each stage of the pipeline.
func (e *Engine) ChatWithMonitor(ctx context.Context, conversationID, question string, onDelta DeltaFunc, monitor TurnMonitor) (*TurnResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	monitor.Start(conversationID, question)
	started := time.Now()
	askedAt := time.Now().UTC()

	// Resolve the conversation, starting one when needed.
	created := false
	if conversationID == "" {
		conv, err := e.memory.Start(ctx)
		if err != nil {
			monitor.Failed(err)
			return nil, err
		}
		conversationID = conv.ID
		created = true
	} else if _, err := e.memory.Get(ctx, conversationID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			monitor.Failed(err)
			return nil, err
		}
		e.logger.Warn("unknown conversation id, starting fresh", "conversation", conversationID)
		conv, startErr := e.memory.Start(ctx)
		if startErr != nil {
			monitor.Failed(startErr)
			return nil, startErr
		}
		conversationID = conv.ID
		created = true
	}
	if created {
		monitor.ConversationStarted(conversationID)
	}

	window, err := e.memory.Window(ctx, conversationID)
	if err != nil {
		monitor.Failed(err)
		return nil, err
	}

	// Retrieval is best effort: a broken index or embedder degrades the
	// turn to an ungrounded answer instead of failing it.
	matches, err := e.retriever.Retrieve(ctx, question)
	if err != nil {
		e.logger.Warn("retrieval failed, answering without context", "conversation", conversationID, "err", err)
		monitor.RetrievalDegraded(err)
		matches = nil
	} else {
		monitor.AfterRetrieval(matches)
	}

	prompt := e.assembler.BuildPrompt(question, window, matches)
	monitor.PromptBuilt(prompt)

	streamFn := func(chunk string) error {
		monitor.Delta(chunk)
		if onDelta != nil {
			return onDelta(chunk)
		}
		return nil
	}

	answer, err := e.generator.StreamComplete(ctx, prompt, streamFn)
	if err != nil {
		// No writes happened yet, so an abandoned or failed generation
		// leaves the conversation exactly as it was.
		e.logger.Error("generation failed, discarding turn", "conversation", conversationID, "err", err)
		monitor.Failed(err)
		return nil, err
	}

	// Persist both sides of the turn together.
	_, err = e.memory.Append(ctx, conversationID,
		&core.Message{Role: core.RoleUser, Text: question, CreatedAt: askedAt},
		&core.Message{Role: core.RoleAssistant, Text: answer},
	)
	if err != nil {
		monitor.Failed(err)
		return nil, err
	}

	if e.onTurnComplete != nil {
		e.onTurnComplete(conversationID)
	}

	e.logger.Info("turn completed",
		"conversation", conversationID,
		"matches", len(matches),
		"elapsed", time.Since(started))
	monitor.Finish(answer)

	return &TurnResult{
		ConversationID: conversationID,
		Answer:         answer,
		Matches:        matches,
		Started:        created,
	}, nil
}
