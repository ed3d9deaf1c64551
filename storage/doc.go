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

// Package storage provides the storage abstraction layer for catalogsync.
//
// This package defines repository interfaces that decouple storage
// implementation from the sync pipeline. Two backends implement them:
//
//   - storage/postgres: the knowledge-base table (CatalogRepository, Connector)
//   - storage/badger: local state (EmbeddingCache, CheckpointRepository)
//
// # Transactions
//
// CatalogRepository exposes explicit Commit and Rollback instead of a
// callback-style transaction helper. The pipeline commits every N products
// and once at the end of each store, so commit cadence belongs to the caller.
//
// # Usage
//
//	connector, err := postgres.NewConnector(dsn, postgres.WithTable("captain_assistant_responses"))
//	repo, err := connector.Open(ctx)
//	if err != nil {
//	    return err
//	}
//	defer repo.Close(ctx)
//
// Use in tests with in-memory local state:
//
//	stores, err := badger.NewMemoryStores()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
