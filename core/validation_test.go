package core

import (
	"errors"
	"testing"
)

func TestValidatePost(t *testing.T) {
	tests := []struct {
		name    string
		post    *Post
		wantErr error
	}{
		{
			name:    "valid post",
			post:    &Post{Title: "Churn Model", Status: StatusCompleted},
			wantErr: nil,
		},
		{
			name: "valid post with media and embedding",
			post: &Post{
				Title:     "Dashboard",
				Status:    StatusInProgress,
				Media:     []Media{{Kind: MediaImage, URL: "https://example.com/a.png"}},
				Embedding: make([]float32, EmbeddingDimensions),
			},
			wantErr: nil,
		},
		{
			name:    "valid post without id",
			post:    &Post{ID: "", Title: "Plan", Status: StatusPlanned},
			wantErr: nil,
		},
		{
			name:    "nil post",
			post:    nil,
			wantErr: ErrInvalidPost,
		},
		{
			name:    "blank title",
			post:    &Post{Title: "   ", Status: StatusPlanned},
			wantErr: ErrEmptyTitle,
		},
		{
			name:    "unknown status",
			post:    &Post{Title: "x", Status: "archived"},
			wantErr: ErrInvalidStatus,
		},
		{
			name: "media without url",
			post: &Post{
				Title:  "x",
				Status: StatusPlanned,
				Media:  []Media{{Kind: MediaVideo}},
			},
			wantErr: ErrEmptyMediaURL,
		},
		{
			name: "media with unknown kind",
			post: &Post{
				Title:  "x",
				Status: StatusPlanned,
				Media:  []Media{{Kind: "audio", URL: "u"}},
			},
			wantErr: ErrInvalidMediaKind,
		},
		{
			name: "short embedding",
			post: &Post{
				Title:     "x",
				Status:    StatusPlanned,
				Embedding: make([]float32, 3),
			},
			wantErr: ErrInvalidEmbedding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePost(tt.post)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePost() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePost() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilters(t *testing.T) {
	if err := ValidateFilters(Filters{Statuses: []Status{StatusCompleted, StatusPlanned}}); err != nil {
		t.Errorf("ValidateFilters() error = %v, want nil", err)
	}
	err := ValidateFilters(Filters{Statuses: []Status{"bogus"}})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("ValidateFilters() error = %v, want %v", err, ErrInvalidFilter)
	}
}
