package main

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/poiesic/folio/core"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedPosts []byte

// postDoc is the YAML form of a post used by import and seed.
type postDoc struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Content     string     `yaml:"content"`
	Tags        []string   `yaml:"tags"`
	Status      string     `yaml:"status"`
	Featured    bool       `yaml:"featured"`
	CreatedOn   time.Time  `yaml:"created_on"`
	GithubURL   string     `yaml:"github_url"`
	DemoURL     string     `yaml:"demo_url"`
	DatasetURL  string     `yaml:"dataset_url"`
	Methodology []string   `yaml:"methodology"`
	Results     string     `yaml:"results"`
	Media       []mediaDoc `yaml:"media"`
}

type mediaDoc struct {
	Kind    string `yaml:"kind"`
	URL     string `yaml:"url"`
	Caption string `yaml:"caption"`
	Alt     string `yaml:"alt"`
}

func (d *postDoc) toPost() *core.Post {
	post := &core.Post{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Content:     d.Content,
		Tags:        d.Tags,
		Status:      core.Status(d.Status),
		Featured:    d.Featured,
		CreatedOn:   d.CreatedOn,
		GithubURL:   d.GithubURL,
		DemoURL:     d.DemoURL,
		DatasetURL:  d.DatasetURL,
		Methodology: d.Methodology,
		Results:     d.Results,
	}
	if post.Status == "" {
		post.Status = core.StatusPlanned
	}
	for _, m := range d.Media {
		post.Media = append(post.Media, core.Media{
			Kind:    core.MediaKind(m.Kind),
			URL:     m.URL,
			Caption: m.Caption,
			Alt:     m.Alt,
		})
	}
	return post
}

// parsePosts decodes a YAML list of posts.
func parsePosts(data []byte) ([]*core.Post, error) {
	var docs []postDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse posts: %w", err)
	}
	posts := make([]*core.Post, len(docs))
	for i := range docs {
		posts[i] = docs[i].toPost()
	}
	return posts, nil
}
