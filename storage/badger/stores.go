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

// Stores bundles the local state repositories over one backend.
type Stores struct {
	Backend     *Backend
	Cache       *EmbeddingCache
	Checkpoints *CheckpointRepository
}

// OpenStores opens the local state at path.
// Caller must Close the result when done.
func OpenStores(path string) (*Stores, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStores(backend), nil
}

// NewMemoryStores creates in-memory local state for testing.
// Caller must Close the result when done.
func NewMemoryStores() (*Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newStores(backend), nil
}

func newStores(backend *Backend) *Stores {
	return &Stores{
		Backend:     backend,
		Cache:       NewEmbeddingCache(backend),
		Checkpoints: NewCheckpointRepository(backend),
	}
}

// Close closes the underlying backend.
func (s *Stores) Close() error {
	if s == nil || s.Backend == nil {
		return nil
	}
	return s.Backend.Close()
}
