package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mentorlink_messages_appended_total",
		Help: "Chat messages appended to the message ledger",
	})

	postsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentorlink_forum_posts_created_total",
		Help: "Forum posts created, by anonymity",
	}, []string{"anonymous"})
)
