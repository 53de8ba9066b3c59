package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"

	"github.com/rs/zerolog"
)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	day := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	return New(docstore.NewMemoryStore(), collection.DefaultRetryPolicy(), func() time.Time { return day }, zerolog.Nop())
}

var seedJobs = []Job{
	{ID: "j1", Title: "Frontend Intern", Company: "TechFlow", Type: TypeInternship, PostedBy: "u2", DatePosted: "2024-05-10"},
	{ID: "j2", Title: "Junior Data Analyst", Company: "DataMinds", Type: TypeFullTime, PostedBy: "u4", DatePosted: "2024-05-12"},
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	b := newTestBoard(t)
	if _, err := b.Seed(ctx, seedJobs); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	jobs, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "j2" || jobs[1].ID != "j1" {
		t.Fatalf("unexpected order %+v", jobs)
	}
}

func TestPostAssignsPosterAndDate(t *testing.T) {
	ctx := context.Background()
	b := newTestBoard(t)
	alumnus := directory.User{ID: "u2", Role: directory.RoleAlumni}

	job, err := b.Post(ctx, alumnus, Draft{Title: " Backend Intern ", Company: "TechFlow", Type: TypeInternship, SkillsRequired: []string{"Go", " "}})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if job.PostedBy != "u2" || job.DatePosted != "2024-05-20" || job.Title != "Backend Intern" {
		t.Fatalf("unexpected job %+v", job)
	}
	if len(job.SkillsRequired) != 1 {
		t.Fatalf("blank skills should be dropped: %v", job.SkillsRequired)
	}

	got, err := b.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != job.ID {
		t.Fatalf("Get returned %+v", got)
	}
}

func TestPostRules(t *testing.T) {
	ctx := context.Background()
	b := newTestBoard(t)
	valid := Draft{Title: "Analyst", Company: "DataMinds", Type: TypeFullTime}

	if _, err := b.Post(ctx, directory.User{ID: "u1", Role: directory.RoleStudent}, valid); !errors.Is(err, ErrForbidden) {
		t.Fatalf("students must not post jobs, got %v", err)
	}
	for _, role := range []directory.Role{directory.RoleAlumni, directory.RoleFaculty, directory.RoleAdmin} {
		if _, err := b.Post(ctx, directory.User{ID: "x", Role: role}, valid); err != nil {
			t.Fatalf("%s should be allowed to post: %v", role, err)
		}
	}
	if _, err := b.Post(ctx, directory.User{ID: "u2", Role: directory.RoleAlumni}, Draft{Type: "GIG"}); !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}
	if _, err := b.Get(ctx, "job_missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
