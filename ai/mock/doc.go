// Package mock provides a test double for ai.Embedder.
//
// # Usage
//
//	m := mock.NewMockEmbedder()
//	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("rate limited")
//	}
//
//	// Check call counts
//	count := m.CallCount()
//
// Without injected functions the mock returns deterministic vectors derived
// from an FNV hash of the text, Dimensions long.
package mock
