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


package core

import (
	"fmt"
	"time"
)

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Role must be valid (user or assistant)
//   - CreatedAt must not be in the future
//
// NOT validated (populated at append time):
//   - Ordinal (assigned from the conversation record)
//   - ConversationID (set by the memory layer before the append)
func ValidateMessage(message *Message) error {
	if message == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if message.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyText)
	}

	if err := ValidateRole(message.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if !message.CreatedAt.IsZero() && !IsValidTimestamp(message.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Metadata.DocID must not be empty
//
// NOT validated (populated during enrichment):
//   - Vector (set by the embedding step)
//   - Keywords and Summary (may stay empty when enrichment degrades)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	if chunk.Metadata.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocID)
	}

	return nil
}

// ValidateIngestedFile validates an IngestedFile registry row.
func ValidateIngestedFile(file *IngestedFile) error {
	if file == nil {
		return fmt.Errorf("%w: file is nil", ErrInvalidFile)
	}

	if file.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFile, ErrEmptyDocID)
	}

	if file.FileName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFile, ErrEmptyFileName)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
