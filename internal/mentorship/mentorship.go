// Package mentorship tracks mentorship requests from students to mentors.
//
// A request starts PENDING. The addressed mentor accepts or rejects it; an
// accepted request is later completed by either party. REJECTED and
// COMPLETED are terminal.
package mentorship

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
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRequestNotFound   = errors.New("mentorship request not found")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidRequest    = errors.New("invalid mentorship request")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

type Event string

const (
	EventAccept   Event = "accept"
	EventReject   Event = "reject"
	EventComplete Event = "complete"
)

// Next returns the status reached by applying ev, or ErrInvalidTransition.
func (s Status) Next(ev Event) (Status, error) {
	switch {
	case s == StatusPending && ev == EventAccept:
		return StatusAccepted, nil
	case s == StatusPending && ev == EventReject:
		return StatusRejected, nil
	case s == StatusAccepted && ev == EventComplete:
		return StatusCompleted, nil
	default:
		return s, fmt.Errorf("%w: %s on %s request", ErrInvalidTransition, ev, s)
	}
}

func (s Status) Open() bool {
	return s == StatusPending || s == StatusAccepted
}

type Request struct {
	ID          string `json:"id"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	MentorID    string `json:"mentorId"`
	Topic       string `json:"topic"`
	Status      Status `json:"status"`
	Message     string `json:"message"`
	Date        string `json:"date"`
}

type Board struct {
	requests *collection.Collection[Request]
	now      func() time.Time
	logger   zerolog.Logger
}

func New(store docstore.Store, policy collection.RetryPolicy, now func() time.Time, logger zerolog.Logger) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{
		requests: collection.New[Request](store, "mentorship", policy, logger),
		now:      now,
		logger:   logger,
	}
}

func (b *Board) Seed(ctx context.Context, requests []Request) (bool, error) {
	return b.requests.Seed(ctx, requests)
}

// Request files a new PENDING request from student to mentor. A student may
// have only one open request per mentor.
func (b *Board) Request(ctx context.Context, student, mentor directory.User, topic, message string) (Request, error) {
	if !rbac.Can(student.Role, rbac.ActionRequestMentorship) {
		return Request{}, fmt.Errorf("%w: %s cannot request mentorship", ErrForbidden, student.Role)
	}
	if !rbac.Can(mentor.Role, rbac.ActionMentor) {
		return Request{}, fmt.Errorf("%w: %s is not a mentor", ErrInvalidRequest, mentor.ID)
	}
	if student.ID == mentor.ID {
		return Request{}, fmt.Errorf("%w: cannot mentor yourself", ErrInvalidRequest)
	}
	if strings.TrimSpace(topic) == "" {
		return Request{}, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}

	req := Request{
		ID:          util.NewID("mreq"),
		StudentID:   student.ID,
		StudentName: student.Name,
		MentorID:    mentor.ID,
		Topic:       strings.TrimSpace(topic),
		Status:      StatusPending,
		Message:     strings.TrimSpace(message),
		Date:        b.now().UTC().Format(time.DateOnly),
	}
	_, err := b.requests.Update(ctx, func(snap *collection.Snapshot[Request]) error {
		for _, item := range snap.Items {
			existing := item.Value
			if existing.StudentID == student.ID && existing.MentorID == mentor.ID && existing.Status.Open() {
				return fmt.Errorf("%w: request %s is still open", ErrInvalidRequest, existing.ID)
			}
		}
		snap.Append(req)
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	b.logger.Info().Str("request_id", req.ID).Str("mentor_id", req.MentorID).Msg("mentorship requested")
	return req, nil
}

func (b *Board) Accept(ctx context.Context, requestID, actorID string) (Request, error) {
	return b.Decide(ctx, requestID, actorID, EventAccept)
}

func (b *Board) Reject(ctx context.Context, requestID, actorID string) (Request, error) {
	return b.Decide(ctx, requestID, actorID, EventReject)
}

func (b *Board) Complete(ctx context.Context, requestID, actorID string) (Request, error) {
	return b.Decide(ctx, requestID, actorID, EventComplete)
}

// Decide applies ev to a request. Only the addressed mentor may accept or
// reject; completion may come from the mentor or the student.
func (b *Board) Decide(ctx context.Context, requestID, actorID string, ev Event) (Request, error) {
	var decided Request
	_, err := b.requests.Update(ctx, func(snap *collection.Snapshot[Request]) error {
		for i := range snap.Items {
			req := &snap.Items[i].Value
			if req.ID != requestID {
				continue
			}
			allowed := actorID == req.MentorID || (ev == EventComplete && actorID == req.StudentID)
			if !allowed {
				return fmt.Errorf("%w: %s cannot %s request %s", ErrForbidden, actorID, ev, req.ID)
			}
			next, err := req.Status.Next(ev)
			if err != nil {
				return err
			}
			req.Status = next
			decided = *req
			return nil
		}
		return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	})
	if err != nil {
		return Request{}, err
	}
	b.logger.Info().Str("request_id", decided.ID).Str("status", string(decided.Status)).Msg("mentorship request updated")
	return decided, nil
}

func (b *Board) Get(ctx context.Context, requestID string) (Request, error) {
	snap, err := b.requests.Load(ctx)
	if err != nil {
		return Request{}, err
	}
	for _, item := range snap.Items {
		if item.Value.ID == requestID {
			return item.Value, nil
		}
	}
	return Request{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
}

// ListForMentor returns requests addressed to mentorID, newest first.
func (b *Board) ListForMentor(ctx context.Context, mentorID string) ([]Request, error) {
	return b.filter(ctx, func(r Request) bool { return r.MentorID == mentorID })
}

// ListForStudent returns requests filed by studentID, newest first.
func (b *Board) ListForStudent(ctx context.Context, studentID string) ([]Request, error) {
	return b.filter(ctx, func(r Request) bool { return r.StudentID == studentID })
}

func (b *Board) filter(ctx context.Context, keep func(Request) bool) ([]Request, error) {
	snap, err := b.requests.Load(ctx)
	if err != nil {
		return nil, err
	}
	var entries []collection.Entry[Request]
	for _, item := range snap.Items {
		if keep(item.Value) {
			entries = append(entries, item)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq > entries[j].Seq })

	out := make([]Request, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out, nil
}
