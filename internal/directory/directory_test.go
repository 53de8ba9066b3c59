package directory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/docstore"

	"github.com/rs/zerolog"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	policy := collection.RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Microsecond, MaxBackoff: time.Millisecond}
	d := New(docstore.NewMemoryStore(), policy, zerolog.Nop())
	_, err := d.Seed(context.Background(), []User{
		{ID: "u1", Name: "Zoe", Role: RoleStudent},
		{ID: "u2", Name: "adam", Role: RoleAlumni},
		{ID: "u3", Name: "Mia", Role: RoleAlumni},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return d
}

func TestGetAndNotFound(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	user, err := d.Get(ctx, "u2")
	if err != nil || user.Name != "adam" {
		t.Fatalf("Get u2: %+v %v", user, err)
	}
	if _, err := d.Get(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestContactsExcludeSelfAndSortByName(t *testing.T) {
	d := newTestDirectory(t)
	contacts, err := d.Contacts(context.Background(), "u3")
	if err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	if len(contacts) != 2 || contacts[0].ID != "u2" || contacts[1].ID != "u1" {
		t.Fatalf("unexpected contacts %+v", contacts)
	}
}

func TestByRole(t *testing.T) {
	d := newTestDirectory(t)
	mentors, err := d.ByRole(context.Background(), RoleAlumni)
	if err != nil {
		t.Fatalf("ByRole: %v", err)
	}
	if len(mentors) != 2 || mentors[0].ID != "u2" || mentors[1].ID != "u3" {
		t.Fatalf("unexpected mentors %+v", mentors)
	}
}

func TestApplyVerification(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	user, err := d.ApplyVerification(ctx, "u1", Verification{IsSuspicious: true, ConfidenceScore: 80})
	if err != nil {
		t.Fatalf("ApplyVerification: %v", err)
	}
	if user.IsVerified || user.TrustScore == nil || *user.TrustScore != 20 {
		t.Fatalf("unexpected result %+v", user)
	}

	stored, err := d.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.TrustScore == nil || *stored.TrustScore != 20 {
		t.Fatalf("verification not persisted: %+v", stored)
	}

	if _, err := d.ApplyVerification(ctx, "ghost", Verification{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTrustScoreBounds(t *testing.T) {
	cases := []struct {
		v    Verification
		want int
	}{
		{Verification{ConfidenceScore: 88}, 88},
		{Verification{IsSuspicious: true, ConfidenceScore: 88}, 12},
		{Verification{ConfidenceScore: 140}, 100},
		{Verification{IsSuspicious: true, ConfidenceScore: -3}, 100},
	}
	for _, tc := range cases {
		if got := tc.v.TrustScore(); got != tc.want {
			t.Errorf("TrustScore(%+v) = %d, want %d", tc.v, got, tc.want)
		}
	}
}

func TestByRoleWithNoMatchesIsEmptyNotNil(t *testing.T) {
	d := newTestDirectory(t)
	faculty, err := d.ByRole(context.Background(), RoleFaculty)
	if err != nil {
		t.Fatalf("ByRole: %v", err)
	}
	if faculty == nil || len(faculty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", faculty)
	}
	raw, err := json.Marshal(map[string]any{"users": faculty})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"users":[]}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{in: "ALUMNI", want: RoleAlumni, ok: true},
		{in: " student ", want: RoleStudent, ok: true},
		{in: "mentor", want: RoleAlumni, ok: true},
		{in: "Faculty", want: RoleFaculty, ok: true},
		{in: "root", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
