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

package core

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// EmbeddingDimensions is the fixed length of every post and query embedding.
const EmbeddingDimensions = 384

// NewPostID returns a fresh random post identifier.
func NewPostID() string {
	return uuid.NewString()
}

// MediaIDFromContent derives a deterministic media identifier from the owning
// post, the item's position and its URL using BLAKE2b hashing.
func MediaIDFromContent(postID string, position int, url string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(postID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(position)))
	h.Write([]byte{0})
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// Status is the lifecycle stage of a portfolio project.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// MediaKind identifies the type of a media attachment.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// MatchType records which matcher produced a search result.
type MatchType string

const (
	// MatchSemantic means the post's embedding cleared the similarity threshold.
	MatchSemantic MatchType = "semantic"
	// MatchExact means the query occurs in the post title.
	MatchExact MatchType = "exact"
	// MatchText means the query occurs only in the post description.
	MatchText MatchType = "text"
)

// Rank orders match types for hybrid results: semantic, then exact, then text.
func (m MatchType) Rank() int {
	switch m {
	case MatchSemantic:
		return 0
	case MatchExact:
		return 1
	case MatchText:
		return 2
	default:
		return 3
	}
}

// Post is a portfolio project write-up.
type Post struct {
	ID          string
	Title       string
	Description string
	Content     string
	Tags        []string
	Status      Status
	Featured    bool
	CreatedOn   time.Time
	UpdatedOn   time.Time
	GithubURL   string // empty when absent
	DemoURL     string // empty when absent
	DatasetURL  string // empty when absent
	Methodology []string
	Results     string
	Media       []Media   // resolved separately from the post row
	Embedding   []float32 // nil until the maintenance job has run
}

// HasEmbedding reports whether an embedding has been stored for the post.
func (p *Post) HasEmbedding() bool {
	return p.Embedding != nil
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Tags = cloneStrings(p.Tags)
	c.Methodology = cloneStrings(p.Methodology)
	if p.Media != nil {
		c.Media = append([]Media(nil), p.Media...)
	}
	if p.Embedding != nil {
		c.Embedding = append([]float32(nil), p.Embedding...)
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Media is an attachment owned by exactly one post.
type Media struct {
	ID      string
	PostID  string
	Kind    MediaKind
	URL     string
	Caption string
	Alt     string
}

// SearchResult pairs a post with the way it matched a query.
type SearchResult struct {
	Post *Post
	// Similarity is the cosine similarity to the query. It is only
	// meaningful when MatchType is MatchSemantic.
	Similarity float32
	MatchType  MatchType
}

// HasSimilarity reports whether Similarity carries a score.
func (r *SearchResult) HasSimilarity() bool {
	return r.MatchType == MatchSemantic
}

// Filters restricts the candidate posts considered by a search.
// Zero values place no restriction.
type Filters struct {
	Statuses []Status // post status must be one of these
	Featured *bool    // post featured flag must equal this
	Tags     []string // post must carry at least one of these tags
}

// IsEmpty reports whether the filters restrict nothing.
func (f Filters) IsEmpty() bool {
	return len(f.Statuses) == 0 && f.Featured == nil && len(f.Tags) == 0
}

// Matches reports whether a post satisfies every filter.
func (f Filters) Matches(p *Post) bool {
	if p == nil {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, want := range f.Tags {
			for _, tag := range p.Tags {
				if tag == want {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Role is the privilege level of a session.
type Role string

const (
	RoleVisitor Role = "visitor"
	RoleAdmin   Role = "admin"
)

// Session identifies the caller of a content mutation.
type Session struct {
	UserID string
	Role   Role
}

// AdminSession returns a session with administrative rights.
func AdminSession(userID string) *Session {
	return &Session{UserID: userID, Role: RoleAdmin}
}

// IsAdmin reports whether the session may modify content.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
