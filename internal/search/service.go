package search

import (
	"context"

	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"

	"github.com/rs/zerolog"
)

// Service is the facade that tries Meilisearch first and falls back to
// scanning the collections.
type Service struct {
	meili  *Meili
	scan   *Scan
	logger zerolog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, scan *Scan, logger zerolog.Logger) *Service {
	return &Service{meili: meili, scan: scan, logger: logger}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to a scan.
// Meilisearch failures fall back silently; scan failures are returned, since
// they come from the collections themselves.
func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	if s.meiliReady() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "meilisearch"}, nil
		}
		s.logger.Warn().Err(err).Msg("meilisearch error, falling back to scan")
	}

	results, total, err := s.scan.Search(ctx, q)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "scan"}, nil
}

// IndexPost pushes a new post to Meilisearch in the background.
func (s *Service) IndexPost(p ledger.ForumPost) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexPosts([]PostRecord{PostRecordFrom(p)}); err != nil {
			s.logger.Warn().Err(err).Str("post_id", p.ID).Msg("index post")
		}
	}()
}

func (s *Service) IndexUser(u directory.User) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexUsers([]UserRecord{UserRecordFrom(u)}); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("index user")
		}
	}()
}

func (s *Service) IndexJob(j jobs.Job) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexJobs([]JobRecord{JobRecordFrom(j)}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", j.ID).Msg("index job")
		}
	}()
}

// ReindexAll reads every collection and pushes it to Meilisearch. Called
// during bootstrap.
func (s *Service) ReindexAll(ctx context.Context) {
	if !s.meiliReady() || s.scan == nil {
		return
	}
	posts, users, list, err := s.scan.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reindex load failed")
		return
	}
	if err := s.meili.IndexPosts(posts); err != nil {
		s.logger.Warn().Err(err).Msg("reindex posts")
	}
	if err := s.meili.IndexUsers(users); err != nil {
		s.logger.Warn().Err(err).Msg("reindex users")
	}
	if err := s.meili.IndexJobs(list); err != nil {
		s.logger.Warn().Err(err).Msg("reindex jobs")
	}
	s.logger.Info().Int("posts", len(posts)).Int("users", len(users)).Int("jobs", len(list)).Msg("search reindexed")
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
