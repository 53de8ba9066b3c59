// Package seed loads the demo campus data. Every collection is seeded at
// most once: a collection that was ever written is left alone.
package seed

import (
	"context"
	"fmt"
	"time"

	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"
	"mentorlink/api/internal/mentorship"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Targets are the collections that receive seed data.
type Targets struct {
	Directory  *directory.Directory
	Jobs       *jobs.Board
	Mentorship *mentorship.Board
	Messages   *ledger.MessageLedger
	Forum      *ledger.ForumLedger
}

// Result reports which collections were written by this run.
type Result struct {
	Users, Jobs, Mentorship, Messages, Posts bool
}

func (r Result) Any() bool {
	return r.Users || r.Jobs || r.Mentorship || r.Messages || r.Posts
}

// Run seeds all collections concurrently. Collections are independent keys,
// so a failure in one does not undo the others.
func Run(ctx context.Context, t Targets, now time.Time, lgr zerolog.Logger) (Result, error) {
	var res Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		res.Users, err = t.Directory.Seed(gctx, Users())
		return wrap("users", err)
	})
	g.Go(func() (err error) {
		res.Jobs, err = t.Jobs.Seed(gctx, Jobs())
		return wrap("jobs", err)
	})
	g.Go(func() (err error) {
		res.Mentorship, err = t.Mentorship.Seed(gctx, MentorshipRequests())
		return wrap("mentorship", err)
	})
	g.Go(func() (err error) {
		res.Messages, err = t.Messages.Seed(gctx, Messages(now))
		return wrap("messages", err)
	})
	g.Go(func() (err error) {
		res.Posts, err = t.Forum.Seed(gctx, Posts(now))
		return wrap("posts", err)
	})

	if err := g.Wait(); err != nil {
		lgr.Error().Err(err).Msg("seeding failed")
		return res, err
	}
	lgr.Info().
		Bool("users", res.Users).
		Bool("jobs", res.Jobs).
		Bool("mentorship", res.Mentorship).
		Bool("messages", res.Messages).
		Bool("posts", res.Posts).
		Msg("seed complete")
	return res, nil
}

func wrap(collection string, err error) error {
	if err != nil {
		return fmt.Errorf("seed %s: %w", collection, err)
	}
	return nil
}

func intPtr(v int) *int { return &v }

func Users() []directory.User {
	return []directory.User{
		{
			ID:         "u1",
			Name:       "Aditi Rao",
			Email:      "aditi@ruas.edu.in",
			Role:       directory.RoleStudent,
			Avatar:     "https://picsum.photos/200/200?random=1",
			Department: "Computer Science",
			Skills:     []string{"React", "JavaScript", "HTML"},
			IsVerified: true,
			TrustScore: intPtr(95),
		},
		{
			ID:         "u2",
			Name:       "Rahul Verma",
			Email:      "rahul.v@techcorp.com",
			Role:       directory.RoleAlumni,
			Avatar:     "https://picsum.photos/200/200?random=2",
			Department: "Computer Science",
			Location:   "Bangalore, India",
			Skills:     []string{"System Design", "Cloud Architecture", "Python", "Mentoring"},
			IsVerified: true,
			TrustScore: intPtr(98),
		},
		{
			ID:         "u3",
			Name:       "Dr. S. Patil",
			Email:      "hod.cs@ruas.edu.in",
			Role:       directory.RoleAdmin,
			Avatar:     "https://picsum.photos/200/200?random=3",
			Department: "Administration",
			Skills:     []string{"Management", "Curriculum"},
			IsVerified: true,
			TrustScore: intPtr(100),
		},
		{
			ID:         "u4",
			Name:       "Priya Sharma",
			Email:      "priya.s@start.up",
			Role:       directory.RoleAlumni,
			Avatar:     "https://picsum.photos/200/200?random=4",
			Department: "Design",
			Location:   "London, UK",
			Skills:     []string{"UX Research", "Figma", "Product Strategy"},
			IsVerified: true,
			TrustScore: intPtr(92),
		},
	}
}

func Jobs() []jobs.Job {
	return []jobs.Job{
		{
			ID:             "j1",
			Title:          "Frontend Intern",
			Company:        "TechFlow",
			Type:           jobs.TypeInternship,
			Location:       "Remote / Bangalore",
			PostedBy:       "u2",
			DatePosted:     "2024-05-10",
			SkillsRequired: []string{"React", "Tailwind"},
		},
		{
			ID:             "j2",
			Title:          "Junior Data Analyst",
			Company:        "DataMinds",
			Type:           jobs.TypeFullTime,
			Location:       "Mumbai",
			PostedBy:       "u4",
			DatePosted:     "2024-05-12",
			SkillsRequired: []string{"Python", "SQL", "Tableau"},
		},
	}
}

func MentorshipRequests() []mentorship.Request {
	return []mentorship.Request{{
		ID:          "m1",
		StudentID:   "u1",
		StudentName: "Aditi Rao",
		MentorID:    "u2",
		Topic:       "Career Path in Cloud Computing",
		Status:      mentorship.StatusPending,
		Message:     "Hi Rahul, I admire your work in Cloud. Could you guide me?",
		Date:        "2024-05-14",
	}}
}

// Messages returns the opening conversation between u1 and u2, dated
// relative to now.
func Messages(now time.Time) []ledger.ChatMessage {
	ms := now.UnixMilli()
	return []ledger.ChatMessage{
		{
			ID:         "c1",
			SenderID:   "u2",
			ReceiverID: "u1",
			Text:       "Hi Aditi, I saw your mentorship request. Happy to help!",
			Timestamp:  ms - 86_400_000,
			Read:       true,
		},
		{
			ID:         "c2",
			SenderID:   "u1",
			ReceiverID: "u2",
			Text:       "Thank you so much Rahul! When are you available to connect?",
			Timestamp:  ms - 86_000_000,
			Read:       true,
		},
	}
}

// Posts returns the two opening forum posts, dated relative to now. The
// second one is anonymous and carries only the sentinel author.
func Posts(now time.Time) []ledger.ForumPost {
	ms := now.UnixMilli()
	anonID, anonName := ledger.Redact(directory.User{}, true)
	return []ledger.ForumPost{
		{
			ID:         "p1",
			AuthorID:   "u1",
			AuthorName: "Aditi Rao",
			Content:    "Does anyone have resources for the Advanced Algorithms exam?",
			Tags:       []string{"CSE", "Exam"},
			Likes:      5,
			Replies:    2,
			Timestamp:  ms - 10_000_000,
		},
		{
			ID:          "p2",
			AuthorID:    anonID,
			AuthorName:  anonName,
			Content:     "I am feeling overwhelmed with the final year project. How do you manage stress?",
			Tags:        []string{"Mental Health", "Advice"},
			Likes:       12,
			Replies:     8,
			Timestamp:   ms - 5_000_000,
			IsAnonymous: true,
		},
	}
}
