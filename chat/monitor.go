package chat

import "github.com/poiesic/docchat/core"

// TurnMonitor provides hooks to observe the turn pipeline.
// Implement this interface to track intermediate steps during a turn.
type TurnMonitor interface {
	Start(conversationID, question string)
	ConversationStarted(conversationID string)
	AfterRetrieval(matches []*core.ChunkMatch)
	RetrievalDegraded(err error)
	PromptBuilt(prompt string)
	Delta(chunk string)
	Finish(answer string)
	Failed(err error)
}

// noopMonitor is a no-op implementation of TurnMonitor
type noopMonitor struct{}

var _ TurnMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                    {}
func (n *noopMonitor) ConversationStarted(_ string)         {}
func (n *noopMonitor) AfterRetrieval(_ []*core.ChunkMatch)  {}
func (n *noopMonitor) RetrievalDegraded(_ error)            {}
func (n *noopMonitor) PromptBuilt(_ string)                 {}
func (n *noopMonitor) Delta(_ string)                       {}
func (n *noopMonitor) Finish(_ string)                      {}
func (n *noopMonitor) Failed(_ error)                       {}
