package search

import (
	"context"
	"fmt"
	"strings"

	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"
)

type PostLister interface {
	List(ctx context.Context) ([]ledger.ForumPost, error)
}

type UserLister interface {
	List(ctx context.Context) ([]directory.User, error)
}

type JobLister interface {
	List(ctx context.Context) ([]jobs.Job, error)
}

// Scan implements Searcher by reading the collections and matching the
// query as a case-insensitive substring. It is the fallback when
// Meilisearch is not configured or unhealthy, and the source of truth for
// reindexing.
type Scan struct {
	Posts PostLister
	Users UserLister
	Jobs  JobLister
}

// Healthy is always true; if the store is down every read fails anyway.
func (s *Scan) Healthy() bool {
	return true
}

func (s *Scan) Search(ctx context.Context, q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil, 0, nil
	}

	var results []Result
	if s.Posts != nil && (q.FilterType == "" || q.FilterType == ResultPost) {
		posts, err := s.Posts.List(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan posts: %w", err)
		}
		for _, p := range posts {
			if matches(needle, p.Content, p.AuthorName, strings.Join(p.Tags, " ")) {
				results = append(results, postResult(PostRecordFrom(p)))
			}
		}
	}
	if s.Users != nil && (q.FilterType == "" || q.FilterType == ResultUser) {
		users, err := s.Users.List(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan users: %w", err)
		}
		for _, u := range users {
			if matches(needle, u.Name, u.Department, u.Location, strings.Join(u.Skills, " ")) {
				results = append(results, userResult(UserRecordFrom(u)))
			}
		}
	}
	if s.Jobs != nil && (q.FilterType == "" || q.FilterType == ResultJob) {
		list, err := s.Jobs.List(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan jobs: %w", err)
		}
		for _, j := range list {
			if matches(needle, j.Title, j.Company, j.Location, strings.Join(j.SkillsRequired, " ")) {
				results = append(results, jobResult(JobRecordFrom(j)))
			}
		}
	}

	total := len(results)
	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + q.limit()
	if end > total {
		end = total
	}
	return results[start:end], total, nil
}

// LoadAllRecords reads everything searchable for a full reindex.
func (s *Scan) LoadAllRecords(ctx context.Context) ([]PostRecord, []UserRecord, []JobRecord, error) {
	var (
		posts []PostRecord
		users []UserRecord
		list  []JobRecord
	)
	if s.Posts != nil {
		all, err := s.Posts.List(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load posts: %w", err)
		}
		for _, p := range all {
			posts = append(posts, PostRecordFrom(p))
		}
	}
	if s.Users != nil {
		all, err := s.Users.List(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load users: %w", err)
		}
		for _, u := range all {
			users = append(users, UserRecordFrom(u))
		}
	}
	if s.Jobs != nil {
		all, err := s.Jobs.List(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load jobs: %w", err)
		}
		for _, j := range all {
			list = append(list, JobRecordFrom(j))
		}
	}
	return posts, users, list, nil
}

func matches(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func postResult(p PostRecord) Result {
	return Result{Type: ResultPost, ID: p.ID, Title: p.AuthorName, Snippet: snippet(p.Content)}
}

func userResult(u UserRecord) Result {
	return Result{Type: ResultUser, ID: u.ID, Title: u.Name, Snippet: strings.TrimSpace(u.Role + " · " + u.Department)}
}

func jobResult(j JobRecord) Result {
	return Result{Type: ResultJob, ID: j.ID, Title: j.Title, Snippet: j.Company}
}

func snippet(s string) string {
	const maxRunes = 160
	r := []rune(strings.TrimSpace(s))
	if len(r) <= maxRunes {
		return string(r)
	}
	return string(r[:maxRunes]) + "…"
}
