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

package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/folio"
	"github.com/poiesic/folio/config"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/search"
	"github.com/poiesic/folio/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const settingsKey = "settings"

// cliSession is the identity the command line acts under for writes.
var cliSession = core.AdminSession("cli")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "folio",
		Usage: "Portfolio post store with hybrid semantic and text search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the database",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Store backend (badger, sqlite)",
			},
			&cli.StringFlag{
				Name:  "embedding-provider",
				Usage: "Embedding provider (hash, openai)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
		},
		Before: loadSettings,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search posts by meaning and text",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity for semantic matches",
					},
					&cli.StringSliceFlag{
						Name:  "status",
						Usage: "Only posts with this status (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Only posts with this tag (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "featured",
						Usage: "Only featured posts",
					},
					&cli.BoolFlag{
						Name:  "not-featured",
						Usage: "Only posts that are not featured",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the embedding of every post",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of posts to process in each batch",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N posts",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding write",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
					},
					&cli.Float64Flag{
						Name:  "rate-limit",
						Usage: "Maximum posts per second (0 for no limit)",
					},
				},
			},
			{
				Name:   "embed",
				Usage:  "Recompute the embedding of one post",
				Action: embedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Post ID", Required: true},
				},
			},
			{
				Name:  "posts",
				Usage: "Manage posts",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List posts, newest first",
						Action: listPostsCommand,
					},
					{
						Name:   "show",
						Usage:  "Show one post as YAML",
						Action: showPostCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Post ID", Required: true},
						},
					},
					{
						Name:   "delete",
						Usage:  "Delete a post and its media",
						Action: deletePostCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Post ID", Required: true},
						},
					},
					{
						Name:      "import",
						Usage:     "Create or update posts from a YAML file",
						ArgsUsage: "FILE",
						Action:    importPostsCommand,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load the sample posts",
				Action: seedCommand,
			},
		},
	}
}

// loadSettings reads the config file and environment, applies global flag
// overrides and configures logging.
func loadSettings(c *cli.Context) error {
	settings, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"log-level", &settings.LogLevel},
		{"db", &settings.Store.Path},
		{"backend", &settings.Store.Backend},
		{"embedding-provider", &settings.Embedding.Provider},
		{"embedding-host", &settings.Embedding.Host},
		{"embedding-model", &settings.Embedding.Model},
	}
	for _, o := range overrides {
		if c.IsSet(o.flag) {
			*o.dst = c.String(o.flag)
		}
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", settings.LogLevel)
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[settingsKey] = settings
	return nil
}

func settingsFrom(c *cli.Context) *config.File {
	if s, ok := c.App.Metadata[settingsKey].(*config.File); ok {
		return s
	}
	return config.Default()
}

func openDatabase(c *cli.Context) (*folio.Database, error) {
	s := settingsFrom(c)
	db, err := folio.NewDatabase(s.Store.Path,
		folio.WithBackend(s.Store.Backend),
		folio.WithAIConfig(s.AIConfig()),
		folio.WithReembedConfig(s.ReembedConfig()),
		folio.WithProgress(c.App.ErrWriter),
		folio.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a search query is required")
	}
	if c.Bool("featured") && c.Bool("not-featured") {
		return errors.New("--featured and --not-featured are mutually exclusive")
	}

	opts := settingsFrom(c).SearchOptions()
	if c.IsSet("limit") {
		opts.Limit = c.Int("limit")
	}
	if c.IsSet("threshold") {
		opts.Threshold = search.Threshold(float32(c.Float64("threshold")))
	}
	for _, s := range c.StringSlice("status") {
		opts.Filters.Statuses = append(opts.Filters.Statuses, core.Status(s))
	}
	opts.Filters.Tags = c.StringSlice("tag")
	if c.Bool("featured") || c.Bool("not-featured") {
		featured := c.Bool("featured")
		opts.Filters.Featured = &featured
	}
	if err := core.ValidateFilters(opts.Filters); err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	recorder := &search.FailureRecorder{}
	results := searcher.SearchWithMonitor(c.Context, query, opts, recorder)
	if recorder.HasFailures() {
		fmt.Fprintln(c.App.ErrWriter, "warning: search was incomplete, see log for details")
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Found %d results\n", len(results))
	for i, r := range results {
		if r.HasSimilarity() {
			fmt.Fprintf(out, "%d. [%s %.3f] %s (%s)\n", i+1, r.MatchType, r.Similarity, r.Post.Title, r.Post.ID)
		} else {
			fmt.Fprintf(out, "%d. [%s] %s (%s)\n", i+1, r.MatchType, r.Post.Title, r.Post.ID)
		}
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	s := settingsFrom(c)
	if c.IsSet("batch-size") {
		s.Reembed.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("report-interval") {
		s.Reembed.ReportInterval = c.Int("report-interval")
	}
	if c.IsSet("max-retries") {
		s.Reembed.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		s.Reembed.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("rate-limit") {
		s.Reembed.RateLimit = c.Float64("rate-limit")
	}
	if err := s.ReembedConfig().Validate(); err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s (%s)\n", s.Store.Path, s.Store.Backend)
	fmt.Fprintf(c.App.ErrWriter, "Embedding provider: %s\n", s.AIConfig().Provider)
	fmt.Fprintln(c.App.ErrWriter)

	summary := db.Reembedder().UpdateAllEmbeddings(c.Context)
	fmt.Fprintf(c.App.Writer, "Reembedded %d of %d posts (%d failed) in %v\n",
		summary.Updated, summary.Total, summary.Failed, summary.Elapsed.Round(time.Millisecond))
	return nil
}

func embedCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	post, err := db.PostRepository().GetPost(c.Context, c.String("id"))
	if err != nil {
		return fmt.Errorf("failed to load post %s: %w", c.String("id"), err)
	}
	if !db.Reembedder().UpdatePostEmbedding(c.Context, post.ID, post.Title, post.Description) {
		return fmt.Errorf("failed to update embedding for post %s", post.ID)
	}
	fmt.Fprintf(c.App.Writer, "Updated embedding for %s\n", post.ID)
	return nil
}

func listPostsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewContentService()
	if err != nil {
		return err
	}
	posts, err := svc.ListPosts(c.Context)
	if err != nil {
		return err
	}
	for _, p := range posts {
		marker := " "
		if p.Featured {
			marker = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %s  %s  %-11s  %s\n",
			marker, p.CreatedOn.Format("2006-01-02"), p.ID, p.Status, p.Title)
	}
	return nil
}

func showPostCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewContentService()
	if err != nil {
		return err
	}
	post, err := svc.GetPost(c.Context, c.String("id"))
	if err != nil {
		return err
	}

	doc := postDoc{
		ID:          post.ID,
		Title:       post.Title,
		Description: post.Description,
		Content:     post.Content,
		Tags:        post.Tags,
		Status:      string(post.Status),
		Featured:    post.Featured,
		CreatedOn:   post.CreatedOn,
		GithubURL:   post.GithubURL,
		DemoURL:     post.DemoURL,
		DatasetURL:  post.DatasetURL,
		Methodology: post.Methodology,
		Results:     post.Results,
	}
	for _, m := range post.Media {
		doc.Media = append(doc.Media, mediaDoc{Kind: string(m.Kind), URL: m.URL, Caption: m.Caption, Alt: m.Alt})
	}

	enc := yaml.NewEncoder(c.App.Writer)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "embedding: %t\n", post.HasEmbedding())
	return nil
}

func deletePostCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewContentService()
	if err != nil {
		return err
	}
	if err := svc.DeletePost(c.Context, cliSession, c.String("id")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %s\n", c.String("id"))
	return nil
}

func importPostsCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one FILE argument is required")
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	return importPosts(c, data)
}

func seedCommand(c *cli.Context) error {
	return importPosts(c, seedPosts)
}

// importPosts creates posts that do not exist yet and updates the rest.
func importPosts(c *cli.Context, data []byte) error {
	posts, err := parsePosts(data)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := db.NewContentService()
	if err != nil {
		return err
	}

	for _, post := range posts {
		exists := false
		if post.ID != "" {
			_, err := svc.GetPost(c.Context, post.ID)
			switch {
			case err == nil:
				exists = true
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
		}

		var saved *core.Post
		if exists {
			saved, err = svc.UpdatePost(c.Context, cliSession, post)
		} else {
			saved, err = svc.CreatePost(c.Context, cliSession, post)
		}
		if err != nil {
			return fmt.Errorf("failed to import %q: %w", post.Title, err)
		}
		fmt.Fprintf(c.App.Writer, "Imported %s: %s\n", saved.ID, saved.Title)
	}
	return nil
}
