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

package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/document"
	"github.com/poiesic/catalogsync/storage"
)

// processProduct composes, embeds and upserts one product.
// Failures are returned in the result; the repository is not touched when
// composing or embedding fails.
func (p *Pipeline) processProduct(ctx context.Context, repo storage.CatalogRepository, store *core.Store, product *core.Product) ProductResult {
	result := ProductResult{
		ProductID: product.ID.String(),
		Name:      product.DisplayName(),
	}
	scope := "product " + result.ProductID

	if err := core.ValidateProduct(product); err != nil {
		result.Err = core.NewFailure(core.KindFeed, scope, err)
		return result
	}

	p.setState(StateComposing)
	doc := document.Compose(product)
	content, err := product.Snapshot()
	if err != nil {
		result.Err = core.NewFailure(core.KindFeed, scope, fmt.Errorf("snapshot: %w", err))
		return result
	}

	p.setState(StateEmbedding)
	embedded := p.provider.Embed(ctx, doc)
	if !embedded.OK() {
		embedded.Err.Scope = scope
		result.Err = embedded.Err
		return result
	}
	result.Cached = embedded.Cached

	p.setState(StateUpserting)
	action, err := upsert(ctx, repo, &core.CatalogRecord{
		ProductID:     result.ProductID,
		StoreID:       store.ID.String(),
		Content:       content,
		ContentVector: embedded.Vector,
		AssistantID:   p.assistantID,
		AccountID:     p.accountID,
	})
	if err != nil {
		result.Err = core.NewFailure(core.KindPersistence, scope, err)
		return result
	}

	result.Action = action
	return result
}

// upsert writes record keyed by ProductID: update when a row exists, insert otherwise.
// Last writer wins; there is no version check.
func upsert(ctx context.Context, repo storage.CatalogRepository, record *core.CatalogRecord) (core.UpsertAction, error) {
	id, err := repo.FindByProductID(ctx, record.ProductID)
	switch {
	case err == nil:
		record.ID = id
		if err := repo.Update(ctx, record); err != nil {
			return core.ActionNone, fmt.Errorf("update: %w", err)
		}
		return core.ActionUpdated, nil
	case errors.Is(err, storage.ErrNotFound):
		if err := repo.Insert(ctx, record); err != nil {
			return core.ActionNone, fmt.Errorf("insert: %w", err)
		}
		return core.ActionInserted, nil
	default:
		return core.ActionNone, fmt.Errorf("lookup: %w", err)
	}
}
