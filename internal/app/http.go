package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"margin/api/internal/pointer"
	"margin/api/internal/search"
	"margin/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *slog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/stats" {
		writeJSON(w, http.StatusOK, s.service.GetCommentStats())
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/pointers/lookup" {
		s.handleLookup(w, r)
		return
	}

	if r.URL.Path == "/api/threads" {
		switch r.Method {
		case http.MethodGet:
			s.handleListThreads(w, r)
		case http.MethodPost:
			s.handleCreateThread(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/documents" {
		writeJSON(w, http.StatusOK, map[string]any{"documents": s.service.Documents()})
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "threads" {
		s.handleThreadRoutes(w, r, parts[2], parts[3:])
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "documents" {
		documentID := parts[2]
		switch {
		case parts[3] == "comments" && r.Method == http.MethodPost:
			s.handleCommentOnSelection(w, r, documentID)
			return
		case parts[3] == "selection" && r.Method == http.MethodGet:
			threads, err := s.service.ThreadsAtSelection(documentID)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"threads": threadViews(threads)})
			return
		case parts[3] == "selection" && r.Method == http.MethodPut:
			s.handleSetSelection(w, r, documentID)
			return
		case parts[3] == "edits" && r.Method == http.MethodPost:
			s.handleEditDocument(w, r, documentID)
			return
		}
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "comments" && r.Method == http.MethodPatch {
		s.handleEditComment(w, r, parts[2])
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "comments" && parts[3] == "status" && r.Method == http.MethodPost {
		s.handleCommentStatus(w, r, parts[2])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleThreadRoutes(w http.ResponseWriter, r *http.Request, threadID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		thread, err := s.service.GetThread(threadID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, threadView(thread))

	case len(rest) == 1 && rest[0] == "comments" && r.Method == http.MethodGet:
		comments, err := s.service.GetCommentsForThread(threadID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": commentViews(comments)})

	case len(rest) == 1 && rest[0] == "comments" && r.Method == http.MethodPost:
		var body struct {
			Content  string `json:"content"`
			Author   string `json:"author"`
			ParentID string `json:"parentId"`
			Draft    bool   `json:"draft"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.Reply(r.Context(), threadID, body.ParentID, body.Content, body.Author, body.Draft)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, commentView(comment))

	case len(rest) == 1 && rest[0] == "resolve" && r.Method == http.MethodPost:
		var body struct {
			ResolvedBy string `json:"resolvedBy"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		thread, err := s.service.ResolveThread(r.Context(), threadID, body.ResolvedBy)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, threadView(thread))

	case len(rest) == 1 && rest[0] == "archive" && r.Method == http.MethodPost:
		thread, err := s.service.ArchiveThread(r.Context(), threadID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, threadView(thread))

	case len(rest) == 1 && rest[0] == "open" && r.Method == http.MethodPost:
		detail, err := s.service.OpenThread(threadID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"thread":   threadView(detail.Thread),
			"comments": commentViews(detail.Comments),
		})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleListThreads(w http.ResponseWriter, r *http.Request) {
	documentID := strings.TrimSpace(r.URL.Query().Get("documentId"))
	pointerType := strings.TrimSpace(r.URL.Query().Get("type"))

	var threads []store.Thread
	switch {
	case documentID != "":
		threads = s.service.GetThreadsForDocument(documentID)
	case pointerType != "":
		threads = s.service.GetThreadsByPointerType(pointer.Type(pointerType))
	default:
		threads = s.service.GetAllThreads()
	}
	if documentID != "" && pointerType != "" {
		filtered := threads[:0]
		for _, thread := range threads {
			if len(thread.Pointers) > 0 && string(thread.Pointers[0].Type()) == pointerType {
				filtered = append(filtered, thread)
			}
		}
		threads = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threadViews(threads)})
}

func (s *HTTPServer) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pointer pointer.Record `json:"pointer"`
		Content string         `json:"content"`
		Author  string         `json:"author"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.Pointer == nil {
		writeError(w, http.StatusBadRequest, store.CodeValidation, "pointer is required", nil)
		return
	}
	p, err := s.service.DecodePointer(body.Pointer)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	thread, comment, err := s.service.Comment(r.Context(), p, body.Content, body.Author)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"thread":  threadView(thread),
		"comment": commentView(comment),
	})
}

func (s *HTTPServer) handleCommentOnSelection(w http.ResponseWriter, r *http.Request, documentID string) {
	var body struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	thread, comment, err := s.service.CommentOnSelection(r.Context(), documentID, body.Content, body.Author)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"thread":  threadView(thread),
		"comment": commentView(comment),
	})
}

func (s *HTTPServer) handleSetSelection(w http.ResponseWriter, r *http.Request, documentID string) {
	var body struct {
		From        *int   `json:"from"`
		To          *int   `json:"to"`
		SectionPath string `json:"sectionPath"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if (body.From == nil) != (body.To == nil) {
		writeError(w, http.StatusBadRequest, store.CodeValidation, "from and to go together", nil)
		return
	}
	sel := Selection{SectionPath: strings.TrimSpace(body.SectionPath)}
	if body.From != nil {
		sel.From, sel.To = *body.From, *body.To
	}
	if err := s.service.SetSelection(documentID, sel); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	threads, err := s.service.ThreadsAtSelection(documentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threadViews(threads)})
}

func (s *HTTPServer) handleEditDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	var body struct {
		From *int   `json:"from"`
		To   *int   `json:"to"`
		Text string `json:"text"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.From == nil || body.To == nil {
		writeError(w, http.StatusBadRequest, store.CodeValidation, "from and to are required", nil)
		return
	}
	report, err := s.service.EditDocument(r.Context(), documentID, *body.From, *body.To, body.Text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pointer pointer.Record `json:"pointer"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if body.Pointer == nil {
		writeError(w, http.StatusBadRequest, store.CodeValidation, "pointer is required", nil)
		return
	}
	p, err := s.service.DecodePointer(body.Pointer)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	threads := s.service.GetThreadsForPointer(p)
	writeJSON(w, http.StatusOK, map[string]any{
		"exists":  len(threads) > 0,
		"threads": threadViews(threads),
	})
}

func (s *HTTPServer) handleEditComment(w http.ResponseWriter, r *http.Request, commentID string) {
	var body struct {
		Content  string `json:"content"`
		EditedBy string `json:"editedBy"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	comment, err := s.service.EditComment(r.Context(), commentID, body.Content, body.EditedBy)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentView(comment))
}

func (s *HTTPServer) handleCommentStatus(w http.ResponseWriter, r *http.Request, commentID string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	comment, err := s.service.SetCommentStatus(r.Context(), commentID, body.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentView(comment))
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	writeJSON(w, http.StatusOK, s.service.Search(search.Query{
		Text:       strings.TrimSpace(query.Get("q")),
		DocumentID: strings.TrimSpace(query.Get("documentId")),
		Limit:      limit,
		Offset:     offset,
	}))
}

func threadViews(threads []store.Thread) []map[string]any {
	out := make([]map[string]any, 0, len(threads))
	for _, thread := range threads {
		out = append(out, threadView(thread))
	}
	return out
}

func threadView(thread store.Thread) map[string]any {
	view := map[string]any{
		"id":            thread.ID,
		"documentId":    thread.DocumentID(),
		"rootCommentId": thread.RootCommentID,
		"pointers":      pointerRecords(thread.Pointers),
		"participants":  thread.Participants,
		"status":        thread.Status,
		"createdAt":     thread.CreatedAt.UTC().Format(time.RFC3339),
	}
	if thread.ResolvedAt != nil {
		view["resolvedBy"] = thread.ResolvedBy
		view["resolvedAt"] = thread.ResolvedAt.UTC().Format(time.RFC3339)
	}
	if thread.OrphanedReason != "" {
		view["orphanedReason"] = thread.OrphanedReason
	}
	return view
}

func commentViews(comments []store.Comment) []map[string]any {
	out := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		out = append(out, commentView(comment))
	}
	return out
}

func commentView(comment store.Comment) map[string]any {
	history := make([]map[string]any, 0, len(comment.EditHistory))
	for _, edit := range comment.EditHistory {
		history = append(history, map[string]any{
			"content":  edit.Content,
			"editedBy": edit.EditedBy,
			"editedAt": edit.EditedAt.UTC().Format(time.RFC3339),
		})
	}
	view := map[string]any{
		"id":          comment.ID,
		"author":      comment.Author,
		"pointers":    pointerRecords(comment.Pointers),
		"content":     comment.Content,
		"timestamp":   comment.Timestamp.UTC().Format(time.RFC3339),
		"status":      comment.Status,
		"editHistory": history,
	}
	if comment.ParentID != "" {
		view["parentId"] = comment.ParentID
	}
	return view
}

func pointerRecords(pointers []pointer.Pointer) []pointer.Record {
	out := make([]pointer.Record, 0, len(pointers))
	for _, p := range pointers {
		record, err := pointer.Serialize(p)
		if err != nil {
			continue
		}
		out = append(out, record)
	}
	return out
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

		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
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

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
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

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		requestID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Error("request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, code, message, details)
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

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(translate(err), &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "CANCELED", "Request canceled", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
