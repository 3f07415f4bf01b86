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


package badger

import "github.com/poiesic/docchat/storage"

// MemoryStores holds the full set of in-memory stores for testing.
// Caller must close the backend when done.
type MemoryStores struct {
	Conversations storage.ConversationStore
	Titles        storage.TitleStore
	Index         storage.VectorIndex
	Files         storage.FileRegistry
	Backend       *Backend
}

// NewMemoryStores creates all stores over a single in-memory backend.
func NewMemoryStores() (*MemoryStores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	return &MemoryStores{
		Conversations: NewConversationStore(backend),
		Titles:        NewTitleStore(backend),
		Index:         NewVectorIndex(backend),
		Files:         NewFileRegistry(backend),
		Backend:       backend,
	}, nil
}

// Close closes the shared backend.
func (m *MemoryStores) Close() error {
	return m.Backend.Close()
}
