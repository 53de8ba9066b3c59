package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mentorlink/api/internal/directory"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultModel = "gpt-4o-mini"
	defaultPlan  = "Focus on project-based learning."

	skillGapPersona = "You are a career counselor for university students. Answer only with a JSON object."
	verifierPersona = "You review campus network profiles for authenticity. Answer only with a JSON object."
)

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// RatePerMinute caps outbound calls; zero disables the limit.
	RatePerMinute int
	Logger        zerolog.Logger
}

type OpenAI struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}

	cfg.Logger.Info().Str("model", model).Msg("openai analyzer initialised")
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		limiter: limiter,
		logger:  cfg.Logger,
	}, nil
}

func (o *OpenAI) AnalyzeSkillGap(ctx context.Context, req SkillGapRequest) (SkillGapReport, error) {
	if err := req.validate(); err != nil {
		return SkillGapReport{}, err
	}

	prompt := fmt.Sprintf(`Skills: %s.
Target: %s.
Analyze the gap. Return JSON with the keys "missingSkills" (array of strings), "recommendations" (array of strings) and "learningSprintPlan" (string).`,
		strings.Join(req.CurrentSkills, ", "), req.TargetRole)

	var out struct {
		MissingSkills      []string `json:"missingSkills"`
		Recommendations    []string `json:"recommendations"`
		LearningSprintPlan string   `json:"learningSprintPlan"`
	}
	if err := o.complete(ctx, "skill_gap", skillGapPersona, prompt, &out); err != nil {
		return SkillGapReport{}, err
	}

	report := SkillGapReport{
		TargetRole:         req.TargetRole,
		MissingSkills:      out.MissingSkills,
		Recommendations:    out.Recommendations,
		LearningSprintPlan: out.LearningSprintPlan,
	}
	if report.MissingSkills == nil {
		report.MissingSkills = []string{}
	}
	if report.Recommendations == nil {
		report.Recommendations = []string{}
	}
	if strings.TrimSpace(report.LearningSprintPlan) == "" {
		report.LearningSprintPlan = defaultPlan
	}
	return report, nil
}

func (o *OpenAI) VerifyProfile(ctx context.Context, user directory.User) (ProfileAnalysis, error) {
	profile, err := json.Marshal(user)
	if err != nil {
		return ProfileAnalysis{}, fmt.Errorf("encode profile: %w", err)
	}
	prompt := fmt.Sprintf(`Analyze this user profile for potential authenticity issues or fake data.
Profile Data: %s

Check for:
1. Mismatched skills for the department.
2. Suspicious email patterns (institution or company emails are good).
3. Generic or inconsistent data.

Return JSON with the keys "isSuspicious" (boolean), "confidenceScore" (number 0-100) and "reasons" (array of strings).`, profile)

	var out struct {
		IsSuspicious    *bool    `json:"isSuspicious"`
		ConfidenceScore *float64 `json:"confidenceScore"`
		Reasons         []string `json:"reasons"`
	}
	if err := o.complete(ctx, "verify_profile", verifierPersona, prompt, &out); err != nil {
		return ProfileAnalysis{}, err
	}
	if out.IsSuspicious == nil || out.ConfidenceScore == nil {
		return ProfileAnalysis{}, fmt.Errorf("%w: response is missing required fields", ErrAnalysisUnavailable)
	}
	if *out.ConfidenceScore < 0 || *out.ConfidenceScore > 100 {
		return ProfileAnalysis{}, fmt.Errorf("%w: confidence score %.1f out of range", ErrAnalysisUnavailable, *out.ConfidenceScore)
	}
	if out.Reasons == nil {
		out.Reasons = []string{}
	}
	return ProfileAnalysis{IsSuspicious: *out.IsSuspicious, ConfidenceScore: *out.ConfidenceScore, Reasons: out.Reasons}, nil
}

// complete performs one chat completion and decodes its JSON answer into
// out. Every failure is reported as ErrAnalysisUnavailable.
func (o *OpenAI) complete(ctx context.Context, operation, persona, prompt string, out any) error {
	if err := o.limiter.Wait(ctx); err != nil {
		calls.WithLabelValues(operation, "rate_limited").Inc()
		return fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	started := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: persona},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	callDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		calls.WithLabelValues(operation, "error").Inc()
		o.logger.Error().Err(err).Str("operation", operation).Msg("openai call failed")
		return fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		calls.WithLabelValues(operation, "malformed").Inc()
		o.logger.Warn().Str("operation", operation).Msg("openai returned no content")
		return fmt.Errorf("%w: empty response", ErrAnalysisUnavailable)
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		calls.WithLabelValues(operation, "malformed").Inc()
		o.logger.Warn().Err(err).Str("operation", operation).Msg("openai returned malformed json")
		return fmt.Errorf("%w: malformed response: %v", ErrAnalysisUnavailable, err)
	}
	calls.WithLabelValues(operation, "ok").Inc()
	return nil
}

// stripCodeFence removes a surrounding ```json fence some models add even
// in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
