package ledger

import (
	"context"
	"fmt"
	"sort"

	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/util"

	"github.com/rs/zerolog"
)

type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
}

func (m ChatMessage) between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// ConversationSummary describes one contact in a user's inbox.
type ConversationSummary struct {
	ContactID   string      `json:"contactId"`
	LastMessage ChatMessage `json:"lastMessage"`
	Unread      int         `json:"unread"`
}

type MessageLedger struct {
	messages *collection.Collection[ChatMessage]
	clock    Clock
	logger   zerolog.Logger
}

func NewMessageLedger(store docstore.Store, policy collection.RetryPolicy, clock Clock, logger zerolog.Logger) *MessageLedger {
	return &MessageLedger{
		messages: collection.New[ChatMessage](store, "messages", policy, logger),
		clock:    clock,
		logger:   logger,
	}
}

func (l *MessageLedger) Seed(ctx context.Context, messages []ChatMessage) (bool, error) {
	return l.messages.Seed(ctx, messages)
}

// Append records a message from sender to receiver. The id and timestamp are
// assigned here; the timestamp is never lower than any already stored.
func (l *MessageLedger) Append(ctx context.Context, senderID, receiverID, text string) (ChatMessage, error) {
	if blank(senderID) || blank(receiverID) {
		return ChatMessage{}, fmt.Errorf("%w: sender and receiver are required", ErrInvalidInput)
	}
	if senderID == receiverID {
		return ChatMessage{}, fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}
	if blank(text) {
		return ChatMessage{}, fmt.Errorf("%w: message text is empty", ErrInvalidInput)
	}

	id := util.NewID("msg")
	var appended ChatMessage
	_, err := l.messages.Update(ctx, func(snap *collection.Snapshot[ChatMessage]) error {
		var maxTS int64
		for _, item := range snap.Items {
			if item.Value.Timestamp > maxTS {
				maxTS = item.Value.Timestamp
			}
		}
		appended = ChatMessage{
			ID:         id,
			SenderID:   senderID,
			ReceiverID: receiverID,
			Text:       text,
			Timestamp:  nextTimestamp(l.clock.millis(), maxTS),
		}
		snap.Append(appended)
		return nil
	})
	if err != nil {
		return ChatMessage{}, err
	}

	messagesAppended.Inc()
	l.logger.Debug().Str("message_id", appended.ID).Int64("timestamp", appended.Timestamp).Msg("message appended")
	return appended, nil
}

// Query returns the conversation between userID and contactID in either
// direction, oldest first. Equal timestamps keep insertion order.
func (l *MessageLedger) Query(ctx context.Context, userID, contactID string) ([]ChatMessage, error) {
	snap, err := l.messages.Load(ctx)
	if err != nil {
		return nil, err
	}

	var entries []collection.Entry[ChatMessage]
	for _, item := range snap.Items {
		if item.Value.between(userID, contactID) {
			entries = append(entries, item)
		}
	}
	sortAscending(entries)

	out := make([]ChatMessage, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Value)
	}
	return out, nil
}

// MarkRead flags every message from contactID to readerID as read and
// returns how many changed.
func (l *MessageLedger) MarkRead(ctx context.Context, readerID, contactID string) (int, error) {
	changed := 0
	_, err := l.messages.Update(ctx, func(snap *collection.Snapshot[ChatMessage]) error {
		changed = 0
		for i := range snap.Items {
			msg := &snap.Items[i].Value
			if msg.SenderID == contactID && msg.ReceiverID == readerID && !msg.Read {
				msg.Read = true
				changed++
			}
		}
		if changed == 0 {
			return collection.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// Conversations summarises every conversation userID takes part in, most
// recent first.
func (l *MessageLedger) Conversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	snap, err := l.messages.Load(ctx)
	if err != nil {
		return nil, err
	}

	type latest struct {
		summary ConversationSummary
		seq     uint64
	}
	byContact := make(map[string]*latest)
	for _, item := range snap.Items {
		msg := item.Value
		var contact string
		switch userID {
		case msg.SenderID:
			contact = msg.ReceiverID
		case msg.ReceiverID:
			contact = msg.SenderID
		default:
			continue
		}

		current, ok := byContact[contact]
		if !ok {
			current = &latest{summary: ConversationSummary{ContactID: contact}}
			byContact[contact] = current
		}
		if !ok || msg.Timestamp > current.summary.LastMessage.Timestamp ||
			(msg.Timestamp == current.summary.LastMessage.Timestamp && item.Seq > current.seq) {
			current.summary.LastMessage = msg
			current.seq = item.Seq
		}
		if msg.ReceiverID == userID && !msg.Read {
			current.summary.Unread++
		}
	}

	all := make([]*latest, 0, len(byContact))
	for _, item := range byContact {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.summary.LastMessage.Timestamp != b.summary.LastMessage.Timestamp {
			return a.summary.LastMessage.Timestamp > b.summary.LastMessage.Timestamp
		}
		return a.seq > b.seq
	})

	out := make([]ConversationSummary, 0, len(all))
	for _, item := range all {
		out = append(out, item.summary)
	}
	return out, nil
}

func sortAscending(entries []collection.Entry[ChatMessage]) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value.Timestamp != entries[j].Value.Timestamp {
			return entries[i].Value.Timestamp < entries[j].Value.Timestamp
		}
		return entries[i].Seq < entries[j].Seq
	})
}
