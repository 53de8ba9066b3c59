package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mentorlink/api/internal/analysis"
	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"
	"mentorlink/api/internal/mentorship"
	"mentorlink/api/internal/rbac"
	"mentorlink/api/internal/search"
	"mentorlink/api/internal/seed"

	"github.com/rs/zerolog"
)

// Deps are the collaborators a Service is built from. Everything except
// Search and Analyzer is required.
type Deps struct {
	Store        docstore.Store
	Directory    *directory.Directory
	Messages     *ledger.MessageLedger
	Forum        *ledger.ForumLedger
	Mentorship   *mentorship.Board
	Jobs         *jobs.Board
	Search       *search.Service
	Analyzer     analysis.Analyzer
	PollInterval time.Duration
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Service is the surface the UI talks to. It holds no state of its own;
// every call goes to the store-backed collections.
type Service struct {
	store        docstore.Store
	directory    *directory.Directory
	messages     *ledger.MessageLedger
	forum        *ledger.ForumLedger
	mentorship   *mentorship.Board
	jobs         *jobs.Board
	search       *search.Service
	analyzer     analysis.Analyzer
	pollInterval time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

func New(deps Deps) *Service {
	s := &Service{
		store:        deps.Store,
		directory:    deps.Directory,
		messages:     deps.Messages,
		forum:        deps.Forum,
		mentorship:   deps.Mentorship,
		jobs:         deps.Jobs,
		search:       deps.Search,
		analyzer:     deps.Analyzer,
		pollInterval: deps.PollInterval,
		now:          deps.Now,
		logger:       deps.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.analyzer == nil {
		s.analyzer = analysis.NewOffline()
	}
	if s.search == nil {
		s.search = search.NewService(nil, &search.Scan{Posts: s.forum, Users: s.directory, Jobs: s.jobs}, s.logger)
	}
	return s
}

// Bootstrap seeds empty collections and pushes everything to the search
// index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if _, err := seed.Run(ctx, s.seedTargets(), s.now(), s.logger); err != nil {
		return err
	}
	s.search.ReindexAll(ctx)
	return nil
}

func (s *Service) seedTargets() seed.Targets {
	return seed.Targets{
		Directory:  s.directory,
		Jobs:       s.jobs,
		Mentorship: s.mentorship,
		Messages:   s.messages,
		Forum:      s.forum,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PollInterval() time.Duration {
	return s.pollInterval
}

// Users

func (s *Service) GetUsers(ctx context.Context) ([]directory.User, error) {
	return s.directory.List(ctx)
}

func (s *Service) GetUser(ctx context.Context, userID string) (directory.User, error) {
	return s.directory.Get(ctx, userID)
}

func (s *Service) Contacts(ctx context.Context, userID string) ([]directory.User, error) {
	if _, err := s.directory.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.directory.Contacts(ctx, userID)
}

// UsersByRole lists the users holding role. "mentor" selects alumni.
func (s *Service) UsersByRole(ctx context.Context, role string) ([]directory.User, error) {
	r, ok := directory.ParseRole(role)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "role must be one of student, alumni, faculty, admin, mentor", nil)
	}
	return s.directory.ByRole(ctx, r)
}

// VerifyUser runs a profile review on behalf of an admin and records the
// outcome in the directory.
func (s *Service) VerifyUser(ctx context.Context, adminID, userID string) (map[string]any, error) {
	admin, err := s.directory.Get(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !rbac.Can(admin.Role, rbac.ActionVerify) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Only admins can verify profiles", nil)
	}
	user, err := s.directory.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.analyzer.VerifyProfile(ctx, user)
	if err != nil {
		return nil, err
	}
	updated, err := s.directory.ApplyVerification(ctx, userID, result.Verification())
	if err != nil {
		return nil, err
	}
	s.search.IndexUser(updated)
	s.logger.Info().Str("user_id", userID).Bool("suspicious", result.IsSuspicious).Msg("profile verified")
	return map[string]any{"user": updated, "analysis": result}, nil
}

// Messages

func (s *Service) GetMessages(ctx context.Context, userID, contactID string) ([]ledger.ChatMessage, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(contactID) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "userId and contactId are required", nil)
	}
	return s.messages.Query(ctx, userID, contactID)
}

func (s *Service) SendMessage(ctx context.Context, senderID, receiverID, text string) (ledger.ChatMessage, error) {
	if err := s.requireUsers(ctx, senderID, receiverID); err != nil {
		return ledger.ChatMessage{}, err
	}
	sender, err := s.directory.Get(ctx, senderID)
	if err != nil {
		return ledger.ChatMessage{}, err
	}
	if !rbac.Can(sender.Role, rbac.ActionMessage) {
		return ledger.ChatMessage{}, domainError(http.StatusForbidden, "FORBIDDEN", "This account cannot send messages", nil)
	}
	return s.messages.Append(ctx, senderID, receiverID, text)
}

func (s *Service) MarkRead(ctx context.Context, readerID, contactID string) (int, error) {
	if err := s.requireUsers(ctx, readerID, contactID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, readerID, contactID)
}

func (s *Service) Conversations(ctx context.Context, userID string) ([]ledger.ConversationSummary, error) {
	if _, err := s.directory.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.messages.Conversations(ctx, userID)
}

func (s *Service) requireUsers(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "user id is required", nil)
		}
		if _, err := s.directory.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Forum

func (s *Service) GetPosts(ctx context.Context) ([]ledger.ForumPost, error) {
	return s.forum.List(ctx)
}

// CreatePost looks the author up by id and publishes the post. For an
// anonymous post the author never leaves this function.
func (s *Service) CreatePost(ctx context.Context, userID, content string, isAnonymous bool, tags []string) (ledger.ForumPost, error) {
	author, err := s.directory.Get(ctx, userID)
	if err != nil {
		return ledger.ForumPost{}, err
	}
	if !rbac.Can(author.Role, rbac.ActionPost) {
		return ledger.ForumPost{}, domainError(http.StatusForbidden, "FORBIDDEN", "This account cannot post to the forum", nil)
	}
	post, err := s.forum.Create(ctx, author, content, isAnonymous, tags)
	if err != nil {
		return ledger.ForumPost{}, err
	}
	s.search.IndexPost(post)
	return post, nil
}

func (s *Service) LikePost(ctx context.Context, postID string) (ledger.ForumPost, error) {
	return s.forum.Like(ctx, postID)
}

func (s *Service) Search(ctx context.Context, text, filterType string, limit, offset int) (search.Response, error) {
	rtyp, ok := search.ParseResultType(filterType)
	if !ok {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be one of post, user, job", nil)
	}
	if limit < 0 || limit > 100 {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be between 0 and 100", nil)
	}
	return s.search.Search(ctx, search.Query{Text: text, FilterType: rtyp, Limit: limit, Offset: offset})
}

// Mentorship

func (s *Service) MentorshipFor(ctx context.Context, userID string) (map[string]any, error) {
	if _, err := s.directory.Get(ctx, userID); err != nil {
		return nil, err
	}
	asMentor, err := s.mentorship.ListForMentor(ctx, userID)
	if err != nil {
		return nil, err
	}
	asStudent, err := s.mentorship.ListForStudent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"asMentor": asMentor, "asStudent": asStudent}, nil
}

func (s *Service) GetMentorshipRequest(ctx context.Context, requestID string) (mentorship.Request, error) {
	return s.mentorship.Get(ctx, requestID)
}

func (s *Service) RequestMentorship(ctx context.Context, studentID, mentorID, topic, message string) (mentorship.Request, error) {
	student, err := s.directory.Get(ctx, studentID)
	if err != nil {
		return mentorship.Request{}, err
	}
	mentor, err := s.directory.Get(ctx, mentorID)
	if err != nil {
		return mentorship.Request{}, err
	}
	return s.mentorship.Request(ctx, student, mentor, topic, message)
}

func (s *Service) DecideMentorship(ctx context.Context, requestID, actorID, action string) (mentorship.Request, error) {
	ev := mentorship.Event(action)
	switch ev {
	case mentorship.EventAccept, mentorship.EventReject, mentorship.EventComplete:
	default:
		return mentorship.Request{}, domainError(http.StatusNotFound, "NOT_FOUND", "Unknown mentorship action", nil)
	}
	if err := s.requireUsers(ctx, actorID); err != nil {
		return mentorship.Request{}, err
	}
	return s.mentorship.Decide(ctx, requestID, actorID, ev)
}

// Jobs

func (s *Service) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	return s.jobs.List(ctx)
}

func (s *Service) GetJob(ctx context.Context, jobID string) (jobs.Job, error) {
	return s.jobs.Get(ctx, jobID)
}

func (s *Service) PostJob(ctx context.Context, posterID string, draft jobs.Draft) (jobs.Job, error) {
	poster, err := s.directory.Get(ctx, posterID)
	if err != nil {
		return jobs.Job{}, err
	}
	job, err := s.jobs.Post(ctx, poster, draft)
	if err != nil {
		return jobs.Job{}, err
	}
	s.search.IndexJob(job)
	return job, nil
}

// Analysis

func (s *Service) AnalyzeSkillGap(ctx context.Context, req analysis.SkillGapRequest) (analysis.SkillGapReport, error) {
	return s.analyzer.AnalyzeSkillGap(ctx, req)
}
