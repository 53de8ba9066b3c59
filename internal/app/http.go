package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mentorlink/api/internal/analysis"
	"mentorlink/api/internal/jobs"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     zerolog.Logger
	upgrader   websocket.Upgrader
	metrics    http.Handler
}

func NewHTTPServer(service *Service, corsOrigin string, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return originAllowed(corsOrigin, r) },
		},
		metrics: promhttp.Handler(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" {
		s.metrics.ServeHTTP(w, r)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"store": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/live" {
		s.handleLive(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r, r.URL.Query().Get("type"))
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	switch parts[1] {
	case "users":
		s.handleUsers(w, r, parts[2:])
	case "messages":
		s.handleMessages(w, r, parts[2:])
	case "posts":
		s.handlePosts(w, r, parts[2:])
	case "mentorship":
		s.handleMentorship(w, r, parts[2:])
	case "jobs":
		s.handleJobs(w, r, parts[2:])
	case "analysis":
		s.handleAnalysis(w, r, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		var (
			payload any
			err     error
		)
		if role := strings.TrimSpace(r.URL.Query().Get("role")); role != "" {
			payload, err = s.service.UsersByRole(r.Context(), role)
		} else {
			payload, err = s.service.GetUsers(r.Context())
		}
		respond(w, http.StatusOK, wrap("users", payload), err)
		return
	}

	userID := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		user, err := s.service.GetUser(r.Context(), userID)
		respond(w, http.StatusOK, user, err)
	case len(parts) == 2 && parts[1] == "contacts" && r.Method == http.MethodGet:
		contacts, err := s.service.Contacts(r.Context(), userID)
		respond(w, http.StatusOK, wrap("users", contacts), err)
	case len(parts) == 2 && parts[1] == "conversations" && r.Method == http.MethodGet:
		summaries, err := s.service.Conversations(r.Context(), userID)
		respond(w, http.StatusOK, wrap("conversations", summaries), err)
	case len(parts) == 2 && parts[1] == "verify" && r.Method == http.MethodPost:
		var body struct {
			AdminID string `json:"adminId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.VerifyUser(r.Context(), body.AdminID, userID)
		respond(w, http.StatusOK, payload, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleMessages(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		q := r.URL.Query()
		messages, err := s.service.GetMessages(r.Context(), q.Get("userId"), q.Get("contactId"))
		respond(w, http.StatusOK, wrap("messages", messages), err)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var body struct {
			SenderID   string `json:"senderId"`
			ReceiverID string `json:"receiverId"`
			Text       string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		msg, err := s.service.SendMessage(r.Context(), body.SenderID, body.ReceiverID, body.Text)
		respond(w, http.StatusCreated, msg, err)
	case len(parts) == 1 && parts[0] == "read" && r.Method == http.MethodPost:
		var body struct {
			UserID    string `json:"userId"`
			ContactID string `json:"contactId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		changed, err := s.service.MarkRead(r.Context(), body.UserID, body.ContactID)
		respond(w, http.StatusOK, map[string]any{"updated": changed}, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handlePosts(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		posts, err := s.service.GetPosts(r.Context())
		respond(w, http.StatusOK, wrap("posts", posts), err)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var body struct {
			UserID      string   `json:"userId"`
			Content     string   `json:"content"`
			IsAnonymous bool     `json:"isAnonymous"`
			Tags        []string `json:"tags"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err := s.service.CreatePost(r.Context(), body.UserID, body.Content, body.IsAnonymous, body.Tags)
		respond(w, http.StatusCreated, post, err)
	case len(parts) == 1 && parts[0] == "search" && r.Method == http.MethodGet:
		s.handleSearch(w, r, "post")
	case len(parts) == 2 && parts[1] == "like" && r.Method == http.MethodPost:
		post, err := s.service.LikePost(r.Context(), parts[0])
		respond(w, http.StatusOK, post, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, filterType string) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		offset = parsed
	}

	payload, err := s.service.Search(r.Context(), q, strings.TrimSpace(filterType), limit, offset)
	respond(w, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleMentorship(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		payload, err := s.service.MentorshipFor(r.Context(), r.URL.Query().Get("userId"))
		respond(w, http.StatusOK, payload, err)
	case len(parts) == 1 && r.Method == http.MethodGet:
		req, err := s.service.GetMentorshipRequest(r.Context(), parts[0])
		respond(w, http.StatusOK, req, err)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var body struct {
			StudentID string `json:"studentId"`
			MentorID  string `json:"mentorId"`
			Topic     string `json:"topic"`
			Message   string `json:"message"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		req, err := s.service.RequestMentorship(r.Context(), body.StudentID, body.MentorID, body.Topic, body.Message)
		respond(w, http.StatusCreated, req, err)
	case len(parts) == 2 && r.Method == http.MethodPost:
		var body struct {
			UserID string `json:"userId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		req, err := s.service.DecideMentorship(r.Context(), parts[0], body.UserID, parts[1])
		respond(w, http.StatusOK, req, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleJobs(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		list, err := s.service.ListJobs(r.Context())
		respond(w, http.StatusOK, wrap("jobs", list), err)
	case len(parts) == 1 && r.Method == http.MethodGet:
		job, err := s.service.GetJob(r.Context(), parts[0])
		respond(w, http.StatusOK, job, err)
	case len(parts) == 0 && r.Method == http.MethodPost:
		var body struct {
			PostedBy string `json:"postedBy"`
			jobs.Draft
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		job, err := s.service.PostJob(r.Context(), body.PostedBy, body.Draft)
		respond(w, http.StatusCreated, job, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleAnalysis(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 || parts[0] != "skill-gap" || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	var body analysis.SkillGapRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	report, err := s.service.AnalyzeSkillGap(r.Context(), body)
	respond(w, http.StatusOK, report, err)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func originAllowed(corsOrigin string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return corsOrigin == "*" || origin == "" || origin == corsOrigin
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

// respond writes payload with status, or the mapped error when err is set.
func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, status, payload)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

// wrap puts list payloads under a key, e.g. {"users": [...]}.
func wrap(key string, payload any) map[string]any {
	return map[string]any{key: payload}
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
