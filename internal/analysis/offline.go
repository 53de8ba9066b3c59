package analysis

import (
	"context"
	"strings"

	"mentorlink/api/internal/directory"
)

// Offline is the documented fallback used when no API key is configured.
// Its answers are fixed and deterministic; it never pretends to have asked
// a model.
type Offline struct {
	// InstitutionDomains are email domains treated as trusted.
	InstitutionDomains []string
}

var (
	offlineMissingSkills   = []string{"Advanced System Design", "Kubernetes", "GraphQL"}
	offlineRecommendations = []string{`Take the "Advanced Cloud Patterns" course`, "Build a microservices project"}
	offlinePlan            = "Week 1: Containerization basics. Week 2: Orchestration with K8s. Week 3: Service Mesh. Week 4: Capstone."
)

const offlineConfidence = 88

func NewOffline() Offline {
	return Offline{InstitutionDomains: []string{"ruas.edu.in"}}
}

// AnalyzeSkillGap returns the canned report minus the skills the student
// already lists.
func (o Offline) AnalyzeSkillGap(_ context.Context, req SkillGapRequest) (SkillGapReport, error) {
	if err := req.validate(); err != nil {
		return SkillGapReport{}, err
	}
	have := make(map[string]struct{}, len(req.CurrentSkills))
	for _, s := range req.CurrentSkills {
		have[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	missing := make([]string, 0, len(offlineMissingSkills))
	for _, s := range offlineMissingSkills {
		if _, ok := have[strings.ToLower(s)]; !ok {
			missing = append(missing, s)
		}
	}
	return SkillGapReport{
		TargetRole:         req.TargetRole,
		MissingSkills:      missing,
		Recommendations:    append([]string(nil), offlineRecommendations...),
		LearningSprintPlan: offlinePlan,
	}, nil
}

// VerifyProfile applies two fixed checks: a recognised email domain and a
// non-empty skill list.
func (o Offline) VerifyProfile(_ context.Context, user directory.User) (ProfileAnalysis, error) {
	var reasons []string
	suspicious := false

	if o.trustedEmail(user.Email) {
		reasons = append(reasons, "Email domain matches institution records")
	} else if user.Email == "" {
		suspicious = true
		reasons = append(reasons, "Profile has no email address")
	} else {
		reasons = append(reasons, "Email domain is not an institution domain")
	}

	if len(user.Skills) > 0 && strings.TrimSpace(user.Department) != "" {
		reasons = append(reasons, "Skills correlate with Department")
	} else {
		suspicious = true
		reasons = append(reasons, "Profile lists no skills or department")
	}

	return ProfileAnalysis{IsSuspicious: suspicious, ConfidenceScore: offlineConfidence, Reasons: reasons}, nil
}

func (o Offline) trustedEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range o.InstitutionDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
