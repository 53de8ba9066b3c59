package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"mentorlink/api/internal/analysis"
	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"
	"mentorlink/api/internal/mentorship"
	"mentorlink/api/internal/seed"

	"github.com/rs/zerolog"
)

func testPolicy() collection.RetryPolicy {
	return collection.RetryPolicy{MaxAttempts: 200, InitialBackoff: time.Microsecond, MaxBackoff: time.Millisecond, JitterFactor: 0.5}
}

// newTestService builds a seeded service over store.
func newTestService(t *testing.T, store docstore.Store) *Service {
	t.Helper()
	logger := zerolog.Nop()
	policy := testPolicy()
	svc := New(Deps{
		Store:        store,
		Directory:    directory.New(store, policy, logger),
		Messages:     ledger.NewMessageLedger(store, policy, time.Now, logger),
		Forum:        ledger.NewForumLedger(store, policy, time.Now, logger),
		Mentorship:   mentorship.New(store, policy, time.Now, logger),
		Jobs:         jobs.New(store, policy, time.Now, logger),
		PollInterval: 20 * time.Millisecond,
		Logger:       logger,
	})
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return svc
}

// corruptCollection replaces a collection body with one that cannot be
// decoded, going through compare-and-set like any writer.
func corruptCollection(t *testing.T, store docstore.Store, key string) {
	t.Helper()
	ctx := context.Background()
	doc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	if _, err := store.CompareAndSet(ctx, key, doc.Revision, []byte(`{"items":[{"seq":"x"}]}`)); err != nil {
		t.Fatalf("corrupt %s: %v", key, err)
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	status, _, _, _ := mapError(err)
	return status
}

func TestBootstrapSeedsOnce(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "u1", "u2", "after seed"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := svc.Bootstrap(ctx); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	users, err := svc.GetUsers(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 4 {
		t.Fatalf("expected 4 users, got %d", len(users))
	}
	messages, err := svc.GetMessages(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 2 seeded + 1 sent, got %d", len(messages))
	}
	if messages[2].Text != "after seed" {
		t.Fatalf("expected newest message last, got %q", messages[2].Text)
	}
}

func TestSendMessageRequiresKnownUsers(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())

	_, err := svc.SendMessage(context.Background(), "u1", "nobody", "hi")
	if !errors.Is(err, directory.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if got := statusOf(t, err); got != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got)
	}
}

func TestGetMessagesValidatesIDs(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())

	_, err := svc.GetMessages(context.Background(), "", "u2")
	if got := statusOf(t, err); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
}

func TestMarkReadAndConversations(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "u4", "u1", "hello from priya"); err != nil {
		t.Fatalf("send: %v", err)
	}
	summaries, err := svc.Conversations(ctx, "u1")
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	unread := map[string]int{}
	for _, s := range summaries {
		unread[s.ContactID] = s.Unread
	}
	if unread["u4"] != 1 {
		t.Fatalf("expected 1 unread from u4, got %+v", summaries)
	}

	changed, err := svc.MarkRead(ctx, "u1", "u4")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 message marked, got %d", changed)
	}
}

func TestCreateAnonymousPostHidesAuthor(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "u1", "Is it normal to feel lost in 3rd year?", true, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.AuthorID != ledger.AnonymousAuthorID || post.AuthorName != ledger.AnonymousAuthorName {
		t.Fatalf("expected redacted author, got %q/%q", post.AuthorID, post.AuthorName)
	}

	posts, err := svc.GetPosts(ctx)
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if posts[0].ID != post.ID {
		t.Fatalf("expected newest post first, got %s", posts[0].ID)
	}
	for _, p := range posts {
		if p.IsAnonymous && p.AuthorID == "u1" {
			t.Fatalf("anonymous post %s exposes author", p.ID)
		}
	}
}

func TestCreatePostUnknownAuthor(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())

	_, err := svc.CreatePost(context.Background(), "ghost", "hello", false, nil)
	if got := statusOf(t, err); got != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got)
	}
}

func TestVerifyUser(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.VerifyUser(ctx, "u1", "u4")
	if got := statusOf(t, err); got != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", got)
	}

	payload, err := svc.VerifyUser(ctx, "u3", "u4")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	user := payload["user"].(directory.User)
	result := payload["analysis"].(analysis.ProfileAnalysis)
	if result.IsSuspicious {
		t.Fatalf("expected u4 to pass offline review, got %+v", result)
	}
	if !user.IsVerified || user.TrustScore == nil {
		t.Fatalf("expected verified user with trust score, got %+v", user)
	}

	stored, err := svc.GetUser(ctx, "u4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *stored.TrustScore != *user.TrustScore {
		t.Fatalf("expected stored trust %d, got %d", *user.TrustScore, *stored.TrustScore)
	}
}

func TestDecideMentorship(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.DecideMentorship(ctx, "m1", "u2", "archive")
	if got := statusOf(t, err); got != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", got)
	}

	_, err = svc.DecideMentorship(ctx, "m1", "u1", "accept")
	if got := statusOf(t, err); got != http.StatusForbidden {
		t.Fatalf("expected 403 when the student accepts, got %d", got)
	}

	req, err := svc.DecideMentorship(ctx, "m1", "u2", "accept")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if req.Status != mentorship.StatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", req.Status)
	}

	_, err = svc.DecideMentorship(ctx, "m1", "u2", "reject")
	if got := statusOf(t, err); got != http.StatusConflict {
		t.Fatalf("expected 409 rejecting an accepted request, got %d", got)
	}

	payload, err := svc.MentorshipFor(ctx, "u2")
	if err != nil {
		t.Fatalf("mentorship for: %v", err)
	}
	if got := payload["asMentor"].([]mentorship.Request); len(got) != 1 {
		t.Fatalf("expected 1 request as mentor, got %d", len(got))
	}
}

func TestPostJobRequiresRole(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())
	ctx := context.Background()
	draft := jobs.Draft{Title: "Backend Intern", Company: "Acme", Type: jobs.TypeInternship, Location: "Remote", SkillsRequired: []string{"Go"}}

	_, err := svc.PostJob(ctx, "u1", draft)
	if got := statusOf(t, err); got != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", got)
	}

	job, err := svc.PostJob(ctx, "u2", draft)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	list, err := svc.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list[0].ID != job.ID {
		t.Fatalf("expected new job first, got %s", list[0].ID)
	}
}

func TestSearchValidatesAndFallsBackToScan(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Search(ctx, "cloud", "course", 10, 0)
	if got := statusOf(t, err); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad type, got %d", got)
	}
	_, err = svc.Search(ctx, "cloud", "", 500, 0)
	if got := statusOf(t, err); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for big limit, got %d", got)
	}

	resp, err := svc.Search(ctx, "Aditi", "user", 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Source != "scan" {
		t.Fatalf("expected scan source, got %s", resp.Source)
	}
	if resp.Total != 1 || resp.Results[0].ID != "u1" {
		t.Fatalf("expected u1, got %+v", resp.Results)
	}
}

func TestAnalyzeSkillGapOffline(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())

	_, err := svc.AnalyzeSkillGap(context.Background(), analysis.SkillGapRequest{CurrentSkills: []string{"Go"}})
	if got := statusOf(t, err); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without target role, got %d", got)
	}

	report, err := svc.AnalyzeSkillGap(context.Background(), analysis.SkillGapRequest{CurrentSkills: []string{"Go"}, TargetRole: "Cloud Engineer"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.TargetRole != "Cloud Engineer" || len(report.MissingSkills) == 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSearchSurfacesCorruption(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := newTestService(t, store)
	corruptCollection(t, store, "collections/posts")

	if _, err := svc.GetPosts(context.Background()); !errors.Is(err, docstore.ErrStorageCorruption) {
		t.Fatalf("expected corruption from GetPosts, got %v", err)
	}
	_, err := svc.Search(context.Background(), "exam", "post", 10, 0)
	if !errors.Is(err, docstore.ErrStorageCorruption) {
		t.Fatalf("expected corruption from Search, got %v", err)
	}
	if got := statusOf(t, err); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestRolesWithoutMessagingOrPostingAreRefused(t *testing.T) {
	store := docstore.NewMemoryStore()
	dir := directory.New(store, testPolicy(), zerolog.Nop())
	users := append(seed.Users(), directory.User{ID: "g1", Name: "Visiting Guest", Role: directory.Role("GUEST")})
	if _, err := dir.Seed(context.Background(), users); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "g1", "u1", "hello")
	if got := statusOf(t, err); got != http.StatusForbidden {
		t.Fatalf("expected 403 for message, got %d", got)
	}
	_, err = svc.CreatePost(ctx, "g1", "hello forum", false, nil)
	if got := statusOf(t, err); got != http.StatusForbidden {
		t.Fatalf("expected 403 for post, got %d", got)
	}

	messages, err := svc.GetMessages(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("refused message was stored: %+v", messages)
	}
	posts, err := svc.GetPosts(ctx)
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected only seeded posts, got %d", len(posts))
	}

	if _, err := svc.SendMessage(ctx, "u1", "g1", "welcome"); err != nil {
		t.Fatalf("student to guest: %v", err)
	}
}

func TestUsersByRole(t *testing.T) {
	svc := newTestService(t, docstore.NewMemoryStore())
	ctx := context.Background()

	mentors, err := svc.UsersByRole(ctx, "mentor")
	if err != nil {
		t.Fatalf("mentors: %v", err)
	}
	if len(mentors) != 2 {
		t.Fatalf("expected 2 mentors, got %d", len(mentors))
	}
	faculty, err := svc.UsersByRole(ctx, "faculty")
	if err != nil {
		t.Fatalf("faculty: %v", err)
	}
	if faculty == nil || len(faculty) != 0 {
		t.Fatalf("expected empty faculty list, got %#v", faculty)
	}
	_, err = svc.UsersByRole(ctx, "root")
	if got := statusOf(t, err); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
}
