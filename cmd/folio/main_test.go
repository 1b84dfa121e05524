package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against dbPath and returns stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	full := append([]string{"folio", "--db", dbPath}, args...)
	err := app.Run(full)
	return out.String(), err
}

func TestParsePosts_Seed(t *testing.T) {
	posts, err := parsePosts(seedPosts)
	require.NoError(t, err)
	require.Len(t, posts, 3)

	churn := posts[0]
	assert.Equal(t, "1", churn.ID)
	assert.Equal(t, "Customer Churn Prediction Model", churn.Title)
	assert.True(t, churn.Featured)
	assert.Len(t, churn.Media, 3)
	assert.Equal(t, 2024, churn.CreatedOn.Year())
	assert.Contains(t, churn.Tags, "XGBoost")
}

func TestParsePosts_DefaultStatus(t *testing.T) {
	posts, err := parsePosts([]byte("- title: Draft\n"))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "planned", string(posts[0].Status))

	_, err = parsePosts([]byte("{not a list"))
	assert.Error(t, err)
}

func TestSeedSearchAndManage(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	out, err := run(t, db, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1: Customer Churn Prediction Model")

	// seeding twice updates in place
	_, err = run(t, db, "seed")
	require.NoError(t, err)

	out, err = run(t, db, "posts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Sales Forecasting Dashboard")
	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("\n")))

	out, err = run(t, db, "search", "churn")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer Churn Prediction Model")

	out, err = run(t, db, "search", "--threshold", "0.99", "--featured", "sentiment")
	require.NoError(t, err)
	assert.Contains(t, out, "[exact] Sentiment Analysis of Social Media")

	out, err = run(t, db, "posts", "show", "--id", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Sales Forecasting Dashboard")

	out, err = run(t, db, "embed", "--id", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated embedding for 2")

	out, err = run(t, db, "reembed", "--batch-size", "2", "--retry-delay", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Reembedded 3 of 3 posts (0 failed)")

	out, err = run(t, db, "posts", "delete", "--id", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 3")

	_, err = run(t, db, "posts", "show", "--id", "3")
	assert.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "posts.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
- title: Graph Embeddings
  description: Node2vec on citation data
  status: in-progress
  tags: [graphs]
`), 0o600))

	db := filepath.Join(dir, "db")
	out, err := run(t, db, "--backend", "sqlite", "posts", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Graph Embeddings")

	out, err = run(t, db, "--backend", "sqlite", "search", "--status", "in-progress", "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "Graph Embeddings")

	_, err = run(t, db, "posts", "import")
	assert.Error(t, err)
}

func TestCommandErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")

	tests := []struct {
		name string
		args []string
	}{
		{"invalid log level", []string{"--log-level", "chatty", "posts", "list"}},
		{"unknown backend", []string{"--backend", "mongo", "posts", "list"}},
		{"empty query", []string{"search"}},
		{"conflicting featured flags", []string{"search", "--featured", "--not-featured", "x"}},
		{"unknown status", []string{"search", "--status", "archived", "x"}},
		{"missing id", []string{"embed"}},
		{"embed missing post", []string{"embed", "--id", "nope"}},
		{"bad batch size", []string{"reembed", "--batch-size", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, db, tt.args...)
			assert.Error(t, err)
		})
	}
}
