package ledger

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"
)

var priya = directory.User{ID: "u1", Name: "Priya Sharma", Email: "priya@campus.edu", Role: directory.RoleStudent}

func TestRedactHidesIdentity(t *testing.T) {
	users := []directory.User{priya, {ID: "anonymous-looking", Name: "Someone"}, {}}
	for _, u := range users {
		id, name := Redact(u, true)
		if id != AnonymousAuthorID || name != AnonymousAuthorName {
			t.Fatalf("Redact(%+v, true) = %q, %q", u, id, name)
		}
		if u.ID != "" && u.ID != AnonymousAuthorID && id == u.ID {
			t.Fatalf("anonymous post leaked user id %q", u.ID)
		}
	}

	id, name := Redact(priya, false)
	if id != priya.ID || name != priya.Name {
		t.Fatalf("Redact(priya, false) = %q, %q", id, name)
	}
}

func TestAnonymousPostIsListedFirstAndRedacted(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	_, forum := newLedgers(t, store, newSteppingClock(time.Millisecond).Now)

	if _, err := forum.Create(ctx, directory.User{ID: "u2", Name: "Rahul"}, "Internship tips?", false, []string{"Career"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	post, err := forum.Create(ctx, priya, "Feeling stressed about exams", true, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.AuthorID != AnonymousAuthorID || post.AuthorName != AnonymousAuthorName || !post.IsAnonymous {
		t.Fatalf("post not redacted: %+v", post)
	}
	if !reflect.DeepEqual(post.Tags, []string{"General"}) {
		t.Fatalf("expected default tag, got %v", post.Tags)
	}

	posts, err := forum.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != post.ID {
		t.Fatalf("new post must be first, got %+v", posts)
	}

	// Nothing stored anywhere may link the post back to the author.
	doc, err := store.Get(ctx, "collections/posts")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if strings.Contains(string(doc.Body), priya.ID) || strings.Contains(string(doc.Body), priya.Name) {
		t.Fatalf("stored posts leak the anonymous author: %s", doc.Body)
	}
}

func TestListNewestFirstWithTiesByInsertion(t *testing.T) {
	ctx := context.Background()
	_, forum := newLedgers(t, docstore.NewMemoryStore(), newSteppingClock(0).Now)

	var ids []string
	for _, content := range []string{"one", "two", "three"} {
		post, err := forum.Create(ctx, priya, content, false, nil)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, post.ID)
	}

	posts, err := forum.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := []string{posts[0].ID, posts[1].ID, posts[2].ID}
	want := []string{ids[2], ids[1], ids[0]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestListIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, forum := newLedgers(t, docstore.NewMemoryStore(), newSteppingClock(time.Second).Now)
	for _, content := range []string{"a", "b"} {
		if _, err := forum.Create(ctx, priya, content, false, []string{"x"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	first, err := forum.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	second, err := forum.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two reads without writes must be identical")
	}
}

func TestCreateRejectsEmptyContent(t *testing.T) {
	_, forum := newLedgers(t, docstore.NewMemoryStore(), nil)
	if _, err := forum.Create(context.Background(), priya, "  \n", false, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := forum.Create(context.Background(), directory.User{}, "hello", false, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing author, got %v", err)
	}
}

func TestLikeAndGet(t *testing.T) {
	ctx := context.Background()
	_, forum := newLedgers(t, docstore.NewMemoryStore(), nil)

	post, err := forum.Create(ctx, priya, "Study group tonight", false, []string{"Study"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := forum.Like(ctx, post.ID); err != nil {
			t.Fatalf("Like: %v", err)
		}
	}
	got, err := forum.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Likes != 3 {
		t.Fatalf("expected 3 likes, got %d", got.Likes)
	}

	if _, err := forum.Like(ctx, "post_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := forum.Get(ctx, "post_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNormalizeTags(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{nil, []string{"General"}},
		{[]string{" ", ""}, []string{"General"}},
		{[]string{" Exams ", "exams", "Stress"}, []string{"Exams", "Stress"}},
	}
	for _, tc := range cases {
		if got := NormalizeTags(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("NormalizeTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
