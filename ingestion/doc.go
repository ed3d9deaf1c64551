// Package ingestion provides the catalog sync pipeline.
//
// The Pipeline type runs one sync cycle:
//   - Fetching the store directory once
//   - Fetching each store's product feed, in directory order
//   - Composing, embedding and upserting each product
//   - Committing every N products and once at the end of each store
//
// Processing is strictly sequential. Failures are contained at the smallest
// scope that can absorb them: a product failure skips the product, a feed or
// commit failure skips the rest of the store, and only an unreachable store
// directory or database fails the whole cycle. The Scheduler repeats cycles
// forever and stops only when its context is cancelled.
package ingestion
