// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docchat

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/reindex"
	"github.com/poiesic/docchat/retrieval"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/poiesic/docchat/titles"
)

// Service wires the storage backend, the AI provider, and both pipelines
// into one entry point for embedding applications.
type Service struct {
	backend   *badger.Backend
	provider  ai.Provider
	memory    *memory.Manager
	pipeline  *ingestion.Pipeline
	engine    *chat.Engine
	titles    *titles.Cache
	reindexer *reindex.Reindexer
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig    *ai.Config
	provider    ai.Provider
	inMemory    bool
	windowSize  int
	reindexOpts []reindex.Option
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider, bypassing provider
// construction. Used by tests with the mock provider.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage uses an in-memory database instead of filePath.
func WithInMemoryStorage() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithWindowSize sets the conversation memory window.
func WithWindowSize(size int) ServiceOption {
	return func(o *serviceOptions) {
		o.windowSize = size
	}
}

// WithReindexProgress enables reindex progress reporting to the given
// writer, typically os.Stderr. reportInterval is in chunks.
func WithReindexProgress(w io.Writer, reportInterval int) ServiceOption {
	return func(o *serviceOptions) {
		o.reindexOpts = append(o.reindexOpts, reindex.WithProgress(w, reportInterval))
	}
}

// NewService opens the database at filePath and wires all components.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	conversations := badger.NewConversationStore(backend)
	titleStore := badger.NewTitleStore(backend)
	index := badger.NewVectorIndex(backend)
	registry := badger.NewFileRegistry(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	var memOpts []memory.Option
	if options.windowSize > 0 {
		memOpts = append(memOpts, memory.WithWindowSize(options.windowSize))
	}
	mem, err := memory.NewManager(conversations, memOpts...)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(index, registry, provider)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	retriever, err := retrieval.NewRetriever(provider.Embedder(), index)
	if err != nil {
		pipeline.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	titleCache, err := titles.NewCache(mem, titleStore, provider)
	if err != nil {
		pipeline.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	engine, err := chat.NewEngine(mem, retriever, provider,
		chat.WithTurnCompleteHook(titleCache.Refresh))
	if err != nil {
		titleCache.Release()
		pipeline.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	reindexer, err := reindex.NewReindexer(index, provider.Embedder(), options.reindexOpts...)
	if err != nil {
		titleCache.Release()
		pipeline.Release()
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:   backend,
		provider:  provider,
		memory:    mem,
		pipeline:  pipeline,
		engine:    engine,
		titles:    titleCache,
		reindexer: reindexer,
		logger:    slog.Default(),
	}, nil
}

// Close releases all resources.
func (s *Service) Close() error {
	s.titles.Release()
	s.pipeline.Release()
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// StartConversation creates a new empty conversation.
func (s *Service) StartConversation(ctx context.Context) (*core.Conversation, error) {
	return s.memory.Start(ctx)
}

// Chat runs one conversation turn. An empty or unknown conversationID
// starts a new conversation. Deltas stream to onDelta as they arrive;
// onDelta may be nil.
func (s *Service) Chat(ctx context.Context, conversationID, question string, onDelta chat.DeltaFunc) (*chat.TurnResult, error) {
	return s.engine.Chat(ctx, conversationID, question, onDelta)
}

// History returns the full message history of a conversation, oldest first.
func (s *Service) History(ctx context.Context, conversationID string) ([]*core.Message, error) {
	return s.memory.FullHistory(ctx, conversationID)
}

// Conversations returns titles for all conversations, most recently active
// first. Conversations without a derived title yet show the placeholder.
func (s *Service) Conversations(ctx context.Context) ([]*core.ConversationTitle, error) {
	return s.titles.List(ctx)
}

// DeleteConversation removes a conversation, its messages, and its title.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string) error {
	return s.memory.Delete(ctx, conversationID)
}

// Ingest processes one uploaded file and returns its registry entry.
func (s *Service) Ingest(ctx context.Context, fileName string, data []byte) (*core.IngestedFile, error) {
	return s.pipeline.Ingest(ctx, fileName, data)
}

// Files returns the registry entries of all ingested files.
func (s *Service) Files(ctx context.Context) ([]*core.IngestedFile, error) {
	return s.pipeline.ListFiles(ctx)
}

// DeleteFile removes a document from the index and the registry.
func (s *Service) DeleteFile(ctx context.Context, docID string) error {
	return s.pipeline.DeleteFile(ctx, docID)
}

// Reindex re-embeds every stored chunk and returns the number processed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	return s.reindexer.Run(ctx)
}
