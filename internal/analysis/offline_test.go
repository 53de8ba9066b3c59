package analysis

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mentorlink/api/internal/directory"
)

func TestOfflineSkillGapIsDeterministic(t *testing.T) {
	o := NewOffline()
	req := SkillGapRequest{CurrentSkills: []string{"kubernetes", "React"}, TargetRole: "Cloud Engineer"}

	first, err := o.AnalyzeSkillGap(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeSkillGap: %v", err)
	}
	second, err := o.AnalyzeSkillGap(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeSkillGap: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("offline report must be deterministic")
	}
	want := []string{"Advanced System Design", "GraphQL"}
	if !reflect.DeepEqual(first.MissingSkills, want) {
		t.Fatalf("expected %v, got %v", want, first.MissingSkills)
	}
	if first.TargetRole != "Cloud Engineer" || first.LearningSprintPlan == "" {
		t.Fatalf("unexpected report %+v", first)
	}

	if _, err := o.AnalyzeSkillGap(context.Background(), SkillGapRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestOfflineVerifyProfile(t *testing.T) {
	o := NewOffline()
	cases := []struct {
		name       string
		user       directory.User
		suspicious bool
	}{
		{"institution student", directory.User{Email: "aditi@ruas.edu.in", Department: "Computer Science", Skills: []string{"React"}}, false},
		{"company alumnus", directory.User{Email: "rahul.v@techcorp.com", Department: "Computer Science", Skills: []string{"Python"}}, false},
		{"no email", directory.User{Department: "Design", Skills: []string{"Figma"}}, true},
		{"empty profile", directory.User{Email: "x@ruas.edu.in"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := o.VerifyProfile(context.Background(), tc.user)
			if err != nil {
				t.Fatalf("VerifyProfile: %v", err)
			}
			if got.IsSuspicious != tc.suspicious {
				t.Fatalf("expected suspicious=%v, got %+v", tc.suspicious, got)
			}
			if got.ConfidenceScore != offlineConfidence || len(got.Reasons) != 2 {
				t.Fatalf("unexpected analysis %+v", got)
			}
		})
	}
}
