package storage

import (
	"testing"
	"time"

	"github.com/poiesic/folio/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalPost(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	vector := make([]float32, core.EmbeddingDimensions)
	vector[7] = 0.6
	vector[200] = -0.8

	tests := []struct {
		name string
		post *core.Post
	}{
		{
			name: "minimal post",
			post: &core.Post{
				ID:        "p1",
				Title:     "Churn",
				Status:    core.StatusPlanned,
				CreatedOn: now,
				UpdatedOn: now,
			},
		},
		{
			name: "full post with embedding",
			post: &core.Post{
				ID:          "p2",
				Title:       "Sales Forecasting Dashboard",
				Description: "Interactive dashboard",
				Content:     "# Overview\n\nBody",
				Tags:        []string{"Time Series", "Prophet"},
				Status:      core.StatusInProgress,
				Featured:    true,
				CreatedOn:   now.Add(-time.Hour),
				UpdatedOn:   now,
				GithubURL:   "https://github.com/x/y",
				DemoURL:     "https://demo.example.com",
				DatasetURL:  "https://data.example.com",
				Methodology: []string{"Decomposition", "Prophet"},
				Results:     "MAPE 8.5%",
				Embedding:   vector,
			},
		},
		{
			name: "zero embedding is distinct from absent",
			post: &core.Post{
				ID:        "p3",
				Title:     "Zero",
				Status:    core.StatusCompleted,
				Embedding: make([]float32, core.EmbeddingDimensions),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalPost(tt.post)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalPost(data)
			require.NoError(t, err)
			assert.Equal(t, tt.post, decoded)
		})
	}
}

func TestUnmarshalPost_Invalid(t *testing.T) {
	full := MarshalPost(&core.Post{ID: "p1", Title: "t", Status: core.StatusPlanned})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", full[:len(full)/2]},
		{"trailing bytes", append(append([]byte(nil), full...), 0x01)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalPost(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalMedia(t *testing.T) {
	media := &core.Media{
		ID:      "m1",
		PostID:  "p1",
		Kind:    core.MediaImage,
		URL:     "https://images.example.com/a.png",
		Caption: "Feature importance",
		Alt:     "Bar chart",
	}
	decoded, err := UnmarshalMedia(MarshalMedia(media))
	require.NoError(t, err)
	assert.Equal(t, media, decoded)
}

func TestMarshalUnmarshalVector(t *testing.T) {
	v := []float32{0.1, -0.2, 0, 1}
	decoded, err := UnmarshalVector(MarshalVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, decoded)

	_, err = UnmarshalVector([]byte{0x10})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
