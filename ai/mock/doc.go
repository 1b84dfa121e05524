// Package mock provides a test double for ai.Embedder.
//
// The mock lets tests run without an external embedding service and gives
// them controlled, deterministic vectors.
//
// # Usage in Tests
//
//	// Default deterministic vectors
//	embedder := mock.NewMockEmbedder()
//
//	// Synthetic vectors for known texts
//	embedder := mock.NewMockEmbedder().WithVectors(map[string][]float32{
//	    "predicting customer behavior": queryVector,
//	})
//
//	// Failure injection
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return nil, errors.New("model offline")
//	    })
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
