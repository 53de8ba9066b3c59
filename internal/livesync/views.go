package livesync

import (
	"context"

	"mentorlink/api/internal/ledger"
)

type MessageSource interface {
	Query(ctx context.Context, userID, contactID string) ([]ledger.ChatMessage, error)
}

type PostSource interface {
	List(ctx context.Context) ([]ledger.ForumPost, error)
}

// Conversation polls the messages between userID and contactID.
func Conversation(src MessageSource, userID, contactID string, consume func([]ledger.ChatMessage), opts Options) *Poller[[]ledger.ChatMessage] {
	if opts.View == "" {
		opts.View = "conversation"
	}
	return New[[]ledger.ChatMessage](func(ctx context.Context) ([]ledger.ChatMessage, error) {
		return src.Query(ctx, userID, contactID)
	}, consume, opts)
}

// Forum polls the full post list.
func Forum(src PostSource, consume func([]ledger.ForumPost), opts Options) *Poller[[]ledger.ForumPost] {
	if opts.View == "" {
		opts.View = "forum"
	}
	return New[[]ledger.ForumPost](src.List, consume, opts)
}
