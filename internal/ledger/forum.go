package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/util"

	"github.com/rs/zerolog"
)

const defaultTag = "General"

// ForumPost carries only the published identity. For anonymous posts the
// author fields hold the anonymous sentinel and nothing else in the ledger
// links the post to a user.
type ForumPost struct {
	ID          string   `json:"id"`
	AuthorID    string   `json:"authorId"`
	AuthorName  string   `json:"authorName"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Likes       int      `json:"likes"`
	Replies     int      `json:"replies"`
	Timestamp   int64    `json:"timestamp"`
	IsAnonymous bool     `json:"isAnonymous"`
}

type ForumLedger struct {
	posts  *collection.Collection[ForumPost]
	clock  Clock
	logger zerolog.Logger
}

func NewForumLedger(store docstore.Store, policy collection.RetryPolicy, clock Clock, logger zerolog.Logger) *ForumLedger {
	return &ForumLedger{
		posts:  collection.New[ForumPost](store, "posts", policy, logger),
		clock:  clock,
		logger: logger,
	}
}

func (l *ForumLedger) Seed(ctx context.Context, posts []ForumPost) (bool, error) {
	return l.posts.Seed(ctx, posts)
}

// Create publishes a post. When isAnonymous is set the author is redacted
// before the post is built, so the real identity never reaches the store.
func (l *ForumLedger) Create(ctx context.Context, author directory.User, content string, isAnonymous bool, tags []string) (ForumPost, error) {
	if blank(content) {
		return ForumPost{}, fmt.Errorf("%w: post content is empty", ErrInvalidInput)
	}
	if !isAnonymous && blank(author.ID) {
		return ForumPost{}, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}

	authorID, authorName := Redact(author, isAnonymous)
	id := util.NewID("post")
	normalized := NormalizeTags(tags)

	var created ForumPost
	_, err := l.posts.Update(ctx, func(snap *collection.Snapshot[ForumPost]) error {
		var maxTS int64
		for _, item := range snap.Items {
			if item.Value.Timestamp > maxTS {
				maxTS = item.Value.Timestamp
			}
		}
		created = ForumPost{
			ID:          id,
			AuthorID:    authorID,
			AuthorName:  authorName,
			Content:     content,
			Tags:        normalized,
			Timestamp:   nextTimestamp(l.clock.millis(), maxTS),
			IsAnonymous: isAnonymous,
		}
		snap.Append(created)
		return nil
	})
	if err != nil {
		return ForumPost{}, err
	}

	postsCreated.WithLabelValues(fmt.Sprint(isAnonymous)).Inc()
	l.logger.Debug().Str("post_id", created.ID).Bool("anonymous", isAnonymous).Msg("post created")
	return created, nil
}

// List returns every post, newest first. Equal timestamps put the later
// insertion first.
func (l *ForumLedger) List(ctx context.Context) ([]ForumPost, error) {
	snap, err := l.posts.Load(ctx)
	if err != nil {
		return nil, err
	}
	entries := append([]collection.Entry[ForumPost](nil), snap.Items...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value.Timestamp != entries[j].Value.Timestamp {
			return entries[i].Value.Timestamp > entries[j].Value.Timestamp
		}
		return entries[i].Seq > entries[j].Seq
	})

	out := make([]ForumPost, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Value)
	}
	return out, nil
}

func (l *ForumLedger) Get(ctx context.Context, postID string) (ForumPost, error) {
	snap, err := l.posts.Load(ctx)
	if err != nil {
		return ForumPost{}, err
	}
	for _, item := range snap.Items {
		if item.Value.ID == postID {
			return item.Value, nil
		}
	}
	return ForumPost{}, fmt.Errorf("%w: post %s", ErrNotFound, postID)
}

// Like increments the like counter of a post.
func (l *ForumLedger) Like(ctx context.Context, postID string) (ForumPost, error) {
	var liked ForumPost
	_, err := l.posts.Update(ctx, func(snap *collection.Snapshot[ForumPost]) error {
		for i := range snap.Items {
			if snap.Items[i].Value.ID == postID {
				snap.Items[i].Value.Likes++
				liked = snap.Items[i].Value
				return nil
			}
		}
		return fmt.Errorf("%w: post %s", ErrNotFound, postID)
	})
	if err != nil {
		return ForumPost{}, err
	}
	return liked, nil
}

// NormalizeTags trims, drops blanks and duplicates (case-insensitively) and
// keeps first-seen order. No tags at all becomes ["General"].
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return []string{defaultTag}
	}
	return out
}
