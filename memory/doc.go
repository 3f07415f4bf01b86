// Package memory manages conversation histories and the bounded recall
// window used to build prompts.
//
// A Manager wraps the conversation store with per-conversation locking so
// concurrent turns against the same conversation serialize their appends.
// The full history is always durable; the window only bounds what a prompt
// sees.
package memory
