// Package embedding turns post and query text into comparable vectors.
//
// HashText is a deterministic hashed bag of words: no model, no network, the
// same input always maps to the same 384-component unit vector (or the zero
// vector for text without tokens). Generator wraps any ai.Embedder, HashText
// by default, and guarantees callers a usable vector even when a model-backed
// embedder fails.
//
// CosineSimilarity compares two vectors and returns 0 when they cannot be
// compared.
package embedding
