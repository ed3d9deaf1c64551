// Package feed reads the store directory and per-store product feeds.
//
// Both endpoints return a JSON array. Every fetch is a single GET bounded by
// the client timeout; there is no pagination, retry or caching. Any problem
// reading a feed surfaces as a *core.Failure of kind core.KindFeed whose scope
// names the feed, so callers can skip the affected unit of work and continue.
//
//	client, err := feed.NewClient(storesURL, feed.WithTimeout(30*time.Second))
//	stores, err := client.FetchStores(ctx)
//	for _, store := range stores {
//	    products, err := client.FetchProducts(ctx, &store)
//	    ...
//	}
package feed
