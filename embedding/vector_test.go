package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{
			name:     "unit vector remains unchanged",
			input:    []float32{1.0, 0.0, 0.0},
			expected: []float32{1.0, 0.0, 0.0},
		},
		{
			name:     "scale non-unit vector",
			input:    []float32{3.0, 4.0},
			expected: []float32{0.6, 0.8},
		},
		{
			name:     "negative values",
			input:    []float32{-1.0, 1.0},
			expected: []float32{-1.0 / float32(math.Sqrt(2)), 1.0 / float32(math.Sqrt(2))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Equal(t, len(tt.expected), len(result), "vector length mismatch")

			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
			assert.InDelta(t, 1.0, Norm(result), 1e-6, "magnitude should be 1.0")
		})
	}
}

func TestNormalizeVector_ZeroVector(t *testing.T) {
	result := NormalizeVector([]float32{0.0, 0.0, 0.0})
	assert.Equal(t, []float32{0, 0, 0}, result)
	assert.True(t, IsZero(result))
}

func TestNormalizeVector_EmptyVector(t *testing.T) {
	assert.Empty(t, NormalizeVector([]float32{}))
}

func TestZero(t *testing.T) {
	z := Zero()
	assert.Len(t, z, 384)
	assert.True(t, IsZero(z))
	assert.Zero(t, Norm(z))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0, 0}, []float32{1, 0}, 0},
		{"zero left", []float32{0, 0}, []float32{1, 0}, 0},
		{"zero right", []float32{1, 0}, []float32{0, 0}, 0},
		{"both empty", []float32{}, []float32{}, 0},
		{"45 degrees", []float32{1, 0}, []float32{1, 1}, float32(1 / math.Sqrt(2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	texts := []string{
		"customer churn prediction",
		"sales forecasting dashboard",
		"sentiment analysis of social media",
		"Churn churn CHURN",
		"",
	}
	for _, a := range texts {
		for _, b := range texts {
			sim := CosineSimilarity(HashText(a), HashText(b))
			assert.GreaterOrEqual(t, sim, float32(-1))
			assert.LessOrEqual(t, sim, float32(1))
		}
	}
}
