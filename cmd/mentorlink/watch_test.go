package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"mentorlink/api/internal/config"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/ledger"
)

func TestPrintMessagesOnlyPrintsNew(t *testing.T) {
	var out bytes.Buffer
	messages := []ledger.ChatMessage{
		{ID: "c1", SenderID: "u2", ReceiverID: "u1", Text: "Hi Aditi"},
		{ID: "c2", SenderID: "u1", ReceiverID: "u2", Text: "Hello sir"},
	}

	shown := printMessages(&out, messages, 0, "u1")
	if shown != 2 {
		t.Fatalf("expected 2 shown, got %d", shown)
	}
	if !strings.Contains(out.String(), "u2: Hi Aditi") || !strings.Contains(out.String(), "me: Hello sir") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	messages = append(messages, ledger.ChatMessage{ID: "c3", SenderID: "u2", ReceiverID: "u1", Text: "Sure"})
	shown = printMessages(&out, messages, shown, "u1")
	if shown != 3 || strings.Count(out.String(), "\n") != 1 {
		t.Fatalf("expected exactly the new message, got %q", out.String())
	}
}

func TestPrintPostsReprintsOnLikeChange(t *testing.T) {
	var out bytes.Buffer
	seen := map[string]int{}
	posts := []ledger.ForumPost{{ID: "p2", AuthorName: "Anonymous Student", Likes: 12}, {ID: "p1", AuthorName: "Aditi Rao", Likes: 5}}

	printPosts(&out, posts, seen)
	if strings.Index(out.String(), "p1") > strings.Index(out.String(), "p2") {
		t.Fatalf("expected oldest post printed first, got %q", out.String())
	}

	out.Reset()
	printPosts(&out, posts, seen)
	if out.Len() != 0 {
		t.Fatalf("expected no output for unchanged posts, got %q", out.String())
	}

	posts[1].Likes = 6
	printPosts(&out, posts, seen)
	if !strings.Contains(out.String(), "p1") || strings.Contains(out.String(), "p2") {
		t.Fatalf("expected only p1 reprinted, got %q", out.String())
	}
}

func TestOpenStore(t *testing.T) {
	store, err := openStore(context.Background(), config.Config{StoreBackend: config.BackendMemory})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := store.(*docstore.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	if _, err := openStore(context.Background(), config.Config{StoreBackend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
