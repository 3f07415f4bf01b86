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


// Package chat implements the retrieval-augmented query pipeline.
//
// The Engine type runs one conversation turn end to end:
//   - Resolving the conversation, starting a new one for empty or unknown ids
//   - Retrieving relevant document chunks for the question
//   - Assembling the prompt from context and the conversation window
//   - Streaming the generated answer to the caller
//   - Persisting the user and assistant messages after completion
//
// Retrieval failures degrade to an ungrounded answer. Generation failures
// and mid-stream cancellation leave the conversation untouched, so a failed
// turn never appears in the history.
package chat
