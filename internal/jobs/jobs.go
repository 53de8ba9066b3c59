// Package jobs is the alumni job board.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/rbac"
	"mentorlink/api/internal/util"

	"github.com/rs/zerolog"
)

var (
	ErrForbidden   = errors.New("not allowed to post jobs")
	ErrInvalidJob  = errors.New("invalid job")
	ErrJobNotFound = errors.New("job not found")
)

type Type string

const (
	TypeInternship Type = "INTERNSHIP"
	TypeFullTime   Type = "FULL_TIME"
	TypeProject    Type = "PROJECT"
)

func (t Type) Valid() bool {
	return t == TypeInternship || t == TypeFullTime || t == TypeProject
}

type Job struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Type           Type     `json:"type"`
	Location       string   `json:"location"`
	PostedBy       string   `json:"postedBy"`
	DatePosted     string   `json:"datePosted"`
	SkillsRequired []string `json:"skillsRequired"`
}

// Draft is what a poster supplies; id, poster and date are assigned.
type Draft struct {
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Type           Type     `json:"type"`
	Location       string   `json:"location"`
	SkillsRequired []string `json:"skillsRequired"`
}

func (d Draft) validate() error {
	var problems []string
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(d.Company) == "" {
		problems = append(problems, "company is required")
	}
	if !d.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown job type %q", d.Type))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidJob, strings.Join(problems, "; "))
	}
	return nil
}

type Board struct {
	jobs   *collection.Collection[Job]
	now    func() time.Time
	logger zerolog.Logger
}

func New(store docstore.Store, policy collection.RetryPolicy, now func() time.Time, logger zerolog.Logger) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{jobs: collection.New[Job](store, "jobs", policy, logger), now: now, logger: logger}
}

func (b *Board) Seed(ctx context.Context, jobs []Job) (bool, error) {
	return b.jobs.Seed(ctx, jobs)
}

// List returns jobs newest first by posting date, later postings first on
// the same day.
func (b *Board) List(ctx context.Context) ([]Job, error) {
	snap, err := b.jobs.Load(ctx)
	if err != nil {
		return nil, err
	}
	entries := append([]collection.Entry[Job](nil), snap.Items...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value.DatePosted != entries[j].Value.DatePosted {
			return entries[i].Value.DatePosted > entries[j].Value.DatePosted
		}
		return entries[i].Seq > entries[j].Seq
	})
	out := make([]Job, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out, nil
}

func (b *Board) Get(ctx context.Context, jobID string) (Job, error) {
	snap, err := b.jobs.Load(ctx)
	if err != nil {
		return Job{}, err
	}
	for _, item := range snap.Items {
		if item.Value.ID == jobID {
			return item.Value, nil
		}
	}
	return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
}

// Post publishes a job on behalf of poster.
func (b *Board) Post(ctx context.Context, poster directory.User, draft Draft) (Job, error) {
	if !rbac.Can(poster.Role, rbac.ActionPostJob) {
		return Job{}, fmt.Errorf("%w: role %s", ErrForbidden, poster.Role)
	}
	if err := draft.validate(); err != nil {
		return Job{}, err
	}

	job := Job{
		ID:             util.NewID("job"),
		Title:          strings.TrimSpace(draft.Title),
		Company:        strings.TrimSpace(draft.Company),
		Type:           draft.Type,
		Location:       strings.TrimSpace(draft.Location),
		PostedBy:       poster.ID,
		DatePosted:     b.now().UTC().Format(time.DateOnly),
		SkillsRequired: cleanSkills(draft.SkillsRequired),
	}
	if _, err := b.jobs.Update(ctx, func(snap *collection.Snapshot[Job]) error {
		snap.Append(job)
		return nil
	}); err != nil {
		return Job{}, err
	}
	b.logger.Info().Str("job_id", job.ID).Str("posted_by", job.PostedBy).Msg("job posted")
	return job, nil
}

func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
