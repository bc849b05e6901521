package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"feedvault/internal/feedparse"
	"feedvault/internal/ingest"
	"feedvault/internal/matcher"
	"feedvault/internal/model"
	"feedvault/internal/queue"
	web "feedvault/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	queryText   string
	queryStatus string
)

var importCmd = &cobra.Command{
	Use:   "import [feedURL] [file|-]",
	Short: "Ingest a feed document into the archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		feedURL := args[0]
		items, err := parseInput(args[1])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var report ingest.Report
		err = a.do(func() error {
			report = a.ingestor.IngestFeed(feedURL, items)
			return a.archive.Commit()
		})
		if err != nil {
			return err
		}
		logger.Info("Feed imported", zap.String("feed", feedURL), zap.Int("items", len(items)))
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [feedURL] [file|-]",
	Short: "Queue a feed document for the serve worker",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := parseInput(args[1])
		if err != nil {
			return err
		}

		ctx := context.Background()
		q, err := queue.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer q.Close()

		job, err := q.Push(ctx, args[0], items)
		if err != nil {
			return err
		}
		logger.Info("Feed queued",
			zap.String("id", job.ID.String()),
			zap.String("feed", job.FeedURL),
			zap.Int("items", len(job.Items)))
		return nil
	},
}

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List archived feeds with their counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		feeds := []web.FeedView{}
		err = a.do(func() error {
			for _, u := range a.archive.Feeds() {
				feeds = append(feeds, web.NewFeedView(u, a.archive.UnreadFor(u), a.archive.TotalCountFor(u), a.archive.LastFetchFor(u)))
			}
			return nil
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), feeds)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [feedURL]",
	Short: "List the articles of a feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := matcher.Search(queryText, queryStatus)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var articles []web.ArticleView
		err = a.do(func() error {
			fr, ok := a.archive.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown feed %s", args[0])
			}
			articles = web.ListArticles(fr, groups)
			return nil
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), articles)
	},
}

var markCmd = &cobra.Command{
	Use:   "mark [feedURL] [guid] [new|unread|read|keep|unkeep|delete]",
	Short: "Change the state of one article",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		feedURL, guid := args[0], args[1]
		update, err := markAction(args[2])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		return a.do(func() error {
			if err := update(a.ingestor, feedURL, guid); err != nil {
				return err
			}
			return a.archive.Commit()
		})
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Apply the retention policy to every feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var evicted int
		err = a.do(func() error {
			evicted = a.ingestor.ExpireAll()
			return a.archive.Commit()
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d articles expired\n", evicted)
		return nil
	},
}

var feedlistCmd = &cobra.Command{
	Use:   "feedlist",
	Short: "Store or restore the backup copy of the feed list",
}

var feedlistStoreCmd = &cobra.Command{
	Use:   "store [file|-]",
	Short: "Save a feed list document in the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := openInput(args[0])
		if err != nil {
			return err
		}
		blob, err := io.ReadAll(in)
		in.Close()
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		return a.do(func() error {
			a.archive.StoreFeedList(string(blob))
			return a.archive.Commit()
		})
	},
}

var feedlistRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Print the feed list saved in the archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var blob string
		if err := a.do(func() error { blob = a.archive.RestoreFeedList(); return nil }); err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), blob)
		return err
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryText, "q", "", "text to look for in title, description and author")
	queryCmd.Flags().StringVar(&queryStatus, "status", "all", "status filter: all, new, unread or important")

	feedlistCmd.AddCommand(feedlistStoreCmd, feedlistRestoreCmd)
}

type markFunc func(w ingest.Writer, feedURL, guid string) error

func markAction(name string) (markFunc, error) {
	if status, ok := model.ParseStatus(name); ok {
		return func(w ingest.Writer, feedURL, guid string) error {
			return w.SetStatus(feedURL, guid, status)
		}, nil
	}
	switch strings.ToLower(name) {
	case "keep", "unkeep":
		keep := strings.EqualFold(name, "keep")
		return func(w ingest.Writer, feedURL, guid string) error {
			return w.SetKeep(feedURL, guid, keep)
		}, nil
	case "delete":
		return func(w ingest.Writer, feedURL, guid string) error {
			return w.SetDeleted(feedURL, guid)
		}, nil
	}
	return nil, fmt.Errorf("unknown action %q", name)
}

func parseInput(name string) ([]model.Item, error) {
	in, err := openInput(name)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return feedparse.NewParser().Parse(in)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
