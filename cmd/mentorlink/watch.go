package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mentorlink/api/internal/ledger"
	"mentorlink/api/internal/livesync"
	"mentorlink/api/internal/logger"

	"github.com/spf13/cobra"
)

var (
	watchUser    string
	watchContact string
	watchForum   bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow a conversation or the forum from the terminal",
		Example: `  mentorlink watch --user u1 --contact u2
  mentorlink watch --forum`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchUser, "user", "", "viewing user id")
	watchCmd.Flags().StringVar(&watchContact, "contact", "", "contact user id")
	watchCmd.Flags().BoolVar(&watchForum, "forum", false, "watch the forum instead of a conversation")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !watchForum && (watchUser == "" || watchContact == "") {
		return errors.New("either --forum or both --user and --contact are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	out := cmd.OutOrStdout()
	opts := livesync.Options{
		Interval: cfg.PollInterval,
		Logger:   logger.Component("watch"),
		OnError: func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %v\n", err)
		},
	}

	var poller livesync.Activator
	if watchForum {
		seen := map[string]int{}
		poller = livesync.Forum(rt.forum, func(posts []ledger.ForumPost) {
			printPosts(out, posts, seen)
		}, opts)
	} else {
		shown := 0
		poller = livesync.Conversation(rt.messages, watchUser, watchContact, func(messages []ledger.ChatMessage) {
			shown = printMessages(out, messages, shown, watchUser)
		}, opts)
	}

	if err := poller.Activate(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	poller.Deactivate()
	return nil
}

// printMessages prints the messages after the first shown and returns the
// new count.
func printMessages(out io.Writer, messages []ledger.ChatMessage, shown int, viewer string) int {
	if shown > len(messages) {
		shown = 0
	}
	for _, m := range messages[shown:] {
		who := m.SenderID
		if m.SenderID == viewer {
			who = "me"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", time.UnixMilli(m.Timestamp).Format(time.Kitchen), who, m.Text)
	}
	return len(messages)
}

// printPosts prints posts that are new or whose like count changed.
func printPosts(out io.Writer, posts []ledger.ForumPost, seen map[string]int) {
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		if likes, ok := seen[p.ID]; ok && likes == p.Likes {
			continue
		}
		seen[p.ID] = p.Likes
		fmt.Fprintf(out, "%s  %s [%s] (%d likes)\n    %s\n", p.ID, p.AuthorName, strings.Join(p.Tags, ", "), p.Likes, p.Content)
	}
}
