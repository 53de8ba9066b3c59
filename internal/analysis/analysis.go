// Package analysis is the boundary to the external AI collaborator used for
// skill-gap reports and profile verification.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mentorlink/api/internal/directory"
)

var (
	// ErrAnalysisUnavailable means the collaborator could not be reached or
	// answered with something unusable. A failed call is not retried.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	ErrInvalidRequest      = errors.New("invalid analysis request")
)

type Analyzer interface {
	AnalyzeSkillGap(ctx context.Context, req SkillGapRequest) (SkillGapReport, error)
	VerifyProfile(ctx context.Context, user directory.User) (ProfileAnalysis, error)
}

type SkillGapRequest struct {
	CurrentSkills []string `json:"currentSkills"`
	TargetRole    string   `json:"targetRole"`
}

func (r SkillGapRequest) validate() error {
	if strings.TrimSpace(r.TargetRole) == "" {
		return fmt.Errorf("%w: targetRole is required", ErrInvalidRequest)
	}
	return nil
}

type SkillGapReport struct {
	TargetRole         string   `json:"targetRole"`
	MissingSkills      []string `json:"missingSkills"`
	Recommendations    []string `json:"recommendations"`
	LearningSprintPlan string   `json:"learningSprintPlan"`
}

type ProfileAnalysis struct {
	IsSuspicious    bool     `json:"isSuspicious"`
	ConfidenceScore float64  `json:"confidenceScore"`
	Reasons         []string `json:"reasons"`
}

// Verification converts the analysis into what the directory records.
func (p ProfileAnalysis) Verification() directory.Verification {
	return directory.Verification{IsSuspicious: p.IsSuspicious, ConfidenceScore: p.ConfidenceScore}
}
