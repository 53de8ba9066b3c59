package search

import (
	"context"

	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPost ResultType = "post"
	ResultUser ResultType = "user"
	ResultJob  ResultType = "job"
)

func ParseResultType(s string) (ResultType, bool) {
	switch ResultType(s) {
	case "":
		return "", true
	case ResultPost, ResultUser, ResultJob:
		return ResultType(s), true
	default:
		return "", false
	}
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return 20
	}
	return q.Limit
}

// Response is the envelope returned by the search endpoints.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Source  string   `json:"source"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// PostRecord is what gets indexed for a forum post. It carries only the
// published author, so anonymous posts stay anonymous in the index.
type PostRecord struct {
	ID          string   `json:"id"`
	AuthorID    string   `json:"authorId"`
	AuthorName  string   `json:"authorName"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	IsAnonymous bool     `json:"isAnonymous"`
	Timestamp   int64    `json:"timestamp"`
}

func PostRecordFrom(p ledger.ForumPost) PostRecord {
	return PostRecord{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		AuthorName:  p.AuthorName,
		Content:     p.Content,
		Tags:        p.Tags,
		IsAnonymous: p.IsAnonymous,
		Timestamp:   p.Timestamp,
	}
}

// UserRecord is the public part of a directory entry. Email is left out.
type UserRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Department string   `json:"department"`
	Location   string   `json:"location"`
	Skills     []string `json:"skills"`
}

func UserRecordFrom(u directory.User) UserRecord {
	return UserRecord{
		ID:         u.ID,
		Name:       u.Name,
		Role:       string(u.Role),
		Department: u.Department,
		Location:   u.Location,
		Skills:     u.Skills,
	}
}

type JobRecord struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Type           string   `json:"type"`
	Location       string   `json:"location"`
	SkillsRequired []string `json:"skillsRequired"`
}

func JobRecordFrom(j jobs.Job) JobRecord {
	return JobRecord{
		ID:             j.ID,
		Title:          j.Title,
		Company:        j.Company,
		Type:           string(j.Type),
		Location:       j.Location,
		SkillsRequired: j.SkillsRequired,
	}
}
