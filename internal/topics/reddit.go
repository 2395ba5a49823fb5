package topics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// Reddit proposes topics from today's top posts of a set of subreddits
type Reddit struct {
	client     *reddit.Client
	subreddits []string
	limit      int
	log        *logrus.Entry

	mu   sync.Mutex
	used map[string]bool
}

// NewReddit uses Reddit's public read-only API. opts are passed to the client.
func NewReddit(subreddits []string, log *logrus.Entry, opts ...reddit.Opt) (*Reddit, error) {
	if len(subreddits) == 0 {
		return nil, errors.New("no subreddits configured")
	}
	client, err := reddit.NewReadonlyClient(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "reddit client")
	}
	return &Reddit{
		client:     client,
		subreddits: subreddits,
		limit:      25,
		log:        log.WithField("component", "topics"),
		used:       make(map[string]bool),
	}, nil
}

type candidate struct {
	id    string
	title string
	score int
}

// Pick returns the best unused post title. Titles mentioning hint win over
// higher-scored ones; an empty hint ranks by score alone.
func (r *Reddit) Pick(ctx context.Context, hint string) (string, error) {
	var candidates []candidate
	for _, sub := range r.subreddits {
		posts, _, err := r.client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{
			ListOptions: reddit.ListOptions{Limit: r.limit},
			Time:        "day",
		})
		if err != nil {
			r.log.WithError(err).WithField("subreddit", sub).Warn("Could not fetch posts")
			continue
		}
		for _, p := range posts {
			if p.Stickied || p.NSFW || strings.TrimSpace(p.Title) == "" {
				continue
			}
			candidates = append(candidates, candidate{id: p.FullID, title: strings.TrimSpace(p.Title), score: p.Score})
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no reddit posts found")
	}

	hint = strings.ToLower(strings.TrimSpace(hint))
	sort.SliceStable(candidates, func(i, j int) bool {
		mi, mj := matches(candidates[i].title, hint), matches(candidates[j].title, hint)
		if mi != mj {
			return mi
		}
		return candidates[i].score > candidates[j].score
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range candidates {
		if r.used[c.id] {
			continue
		}
		r.used[c.id] = true
		r.log.WithFields(logrus.Fields{"title": c.title, "score": c.score}).Info("Picked topic from Reddit")
		return c.title, nil
	}
	return "", errors.New("all reddit posts have been used already")
}

func matches(title, hint string) bool {
	return hint != "" && strings.Contains(strings.ToLower(title), hint)
}
