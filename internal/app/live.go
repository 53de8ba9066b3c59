package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"mentorlink/api/internal/ledger"
	"mentorlink/api/internal/livesync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 * 1024

	sendBuffer = 8
)

// viewRequest selects what a live connection is watching.
type viewRequest struct {
	View      string `json:"view"`
	UserID    string `json:"userId,omitempty"`
	ContactID string `json:"contactId,omitempty"`
}

type liveFrame struct {
	View     string                `json:"view"`
	Messages *[]ledger.ChatMessage `json:"messages,omitempty"`
	Posts    *[]ledger.ForumPost   `json:"posts,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// liveClient is one websocket connection. Pollers push whole snapshots into
// send; writePump is the only goroutine that writes to conn.
type liveClient struct {
	service *Service
	conn    *websocket.Conn
	send    chan []byte
	binder  livesync.ViewBinder
	logger  zerolog.Logger
}

func (s *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	initial := viewRequest{
		View:      q.Get("view"),
		UserID:    q.Get("userId"),
		ContactID: q.Get("contactId"),
	}
	if err := s.service.checkView(r.Context(), initial); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	// The request context ends with the handler; the connection outlives it.
	ctx, cancel := context.WithCancel(context.Background())
	c := &liveClient{
		service: s.service,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		logger:  s.logger.With().Str("component", "live").Str("request_id", requestIDFrom(r.Context())).Logger(),
	}
	go c.writePump(ctx)
	if err := c.bind(ctx, initial); err != nil {
		c.logger.Warn().Err(err).Msg("initial view bind failed")
	}
	go func() {
		c.readPump(ctx)
		cancel()
		c.binder.Release()
	}()
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// checkView validates a view request against the directory.
func (s *Service) checkView(ctx context.Context, req viewRequest) error {
	switch req.View {
	case "forum":
		return nil
	case "conversation":
		return s.requireUsers(ctx, req.UserID, req.ContactID)
	default:
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "view must be conversation or forum", nil)
	}
}

func (c *liveClient) bind(ctx context.Context, req viewRequest) error {
	opts := livesync.Options{
		Interval: c.service.PollInterval(),
		View:     req.View,
		Logger:   c.logger,
		OnError: func(err error) {
			c.logger.Warn().Err(err).Str("view", req.View).Msg("live refresh failed")
			c.push(liveFrame{View: req.View, Error: publicMessage(err)})
		},
	}

	switch req.View {
	case "conversation":
		poller := livesync.Conversation(c.service.messages, req.UserID, req.ContactID, func(messages []ledger.ChatMessage) {
			if messages == nil {
				messages = []ledger.ChatMessage{}
			}
			c.push(liveFrame{View: req.View, Messages: &messages})
		}, opts)
		return c.binder.Bind(ctx, req.View, poller)
	default:
		poller := livesync.Forum(c.service.forum, func(posts []ledger.ForumPost) {
			if posts == nil {
				posts = []ledger.ForumPost{}
			}
			c.push(liveFrame{View: req.View, Posts: &posts})
		}, opts)
		return c.binder.Bind(ctx, req.View, poller)
	}
}

// push never blocks the poller. A full buffer drops the frame; the next
// poll carries a complete snapshot anyway.
func (c *liveClient) push(frame liveFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode live frame")
		return
	}
	select {
	case c.send <- payload:
	default:
		c.logger.Debug().Str("view", frame.View).Msg("live frame dropped, client is slow")
	}
}

// publicMessage is the error text a client may see, the same as the HTTP
// error body.
func publicMessage(err error) string {
	_, _, message, _ := mapError(err)
	return message
}

func (c *liveClient) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Msg("live connection closed")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("unexpected live close")
			} else {
				c.logger.Debug().Err(err).Msg("live read error")
			}
			return
		}

		var req viewRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.push(liveFrame{Error: "invalid JSON frame"})
			continue
		}
		req.View = strings.TrimSpace(req.View)
		if err := c.service.checkView(ctx, req); err != nil {
			c.push(liveFrame{View: req.View, Error: publicMessage(err)})
			continue
		}
		if err := c.bind(ctx, req); err != nil {
			c.push(liveFrame{View: req.View, Error: publicMessage(err)})
		}
	}
}

func (c *liveClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug().Err(err).Msg("live write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
