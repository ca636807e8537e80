package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/metrics"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/search"
)

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// decodeJSON decodes a request body, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return false
	}
	return true
}

func (s *Server) requireEngine(w http.ResponseWriter) bool {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine_unavailable", "Inbox not available")
		return false
	}
	return true
}

// engineError maps engine failures onto responses.
func (s *Server) engineError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "timeout", "Request timed out")
		return
	}
	s.logger.Error("inbox query failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "Failed to query inbox")
}

// ListResponse is a page of emails.
type ListResponse struct {
	Emails     []query.Email `json:"emails"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Sort       string        `json:"sort"`
	Order      string        `json:"order"`
	SearchMode string        `json:"search_mode"`
}

// listParams parses the dashboard query string. The q parameter uses the
// search syntax; explicit parameters win over operators in q.
func (s *Server) listParams(r *http.Request) (query.Filter, query.Sort, query.Pagination, error) {
	v := r.URL.Query()
	var f query.Filter
	if q := strings.TrimSpace(v.Get("q")); q != "" {
		f = search.Parse(q).Filter()
	}

	if c := v.Get("category"); c != "" {
		cat, err := query.ParseCategory(c)
		if err != nil {
			return f, query.Sort{}, query.Pagination{}, err
		}
		f.Category = cat
	}
	if p := v.Get("priority"); p != "" && p != "all" {
		level, err := query.ParsePriority(p)
		if err != nil {
			return f, query.Sort{}, query.Pagination{}, err
		}
		f.Priority = &level
	}
	if c := v.Get("company"); c != "" {
		f.Company = c
	}
	if st := v.Get("status"); st != "" {
		status, err := query.ParseStatus(st)
		if err != nil {
			return f, query.Sort{}, query.Pagination{}, err
		}
		f.Status = status
	}
	if text := strings.TrimSpace(v.Get("search")); text != "" {
		f.Search = strings.TrimSpace(text + " " + f.Search)
	}

	mode := v.Get("search_mode")
	if mode == "" {
		mode = s.cfg.Dashboard.SearchMode
	}
	sm, err := query.ParseSearchMode(mode)
	if err != nil {
		return f, query.Sort{}, query.Pagination{}, err
	}
	f.SearchMode = sm

	key, err := query.ParseSortKey(v.Get("sort"))
	if err != nil {
		return f, query.Sort{}, query.Pagination{}, err
	}
	dir, err := query.ParseSortDirection(v.Get("order"))
	if err != nil {
		return f, query.Sort{}, query.Pagination{}, err
	}

	page, _ := strconv.Atoi(v.Get("page"))
	size, _ := strconv.Atoi(v.Get("page_size"))
	if size == 0 {
		size = s.cfg.Dashboard.PageSize
	}
	return f, query.Sort{Key: key, Direction: dir}, query.Pagination{Page: page, PageSize: size}, nil
}

// handleListEmails returns a filtered, sorted page of emails.
func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	if !s.requireEngine(w) {
		return
	}
	f, srt, pg, err := s.listParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	page, err := s.engine.List(r.Context(), f, srt, pg)
	if err != nil {
		s.engineError(w, "list", err)
		return
	}
	if s.cfg.Server.MetricsEnabled {
		metrics.RecordEmailQuery(srt.Key.String(), f.SearchMode.String())
	}

	emails := page.Items
	if emails == nil {
		emails = []query.Email{}
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Emails:     emails,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Sort:       srt.Key.String(),
		Order:      srt.Direction.String(),
		SearchMode: f.SearchMode.String(),
	})
}

// handleGetEmail returns a single email.
func (s *Server) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	if !s.requireEngine(w) {
		return
	}
	id := chi.URLParam(r, "id")
	email, err := s.engine.Get(r.Context(), id)
	if errors.Is(err, query.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Email not found")
		return
	}
	if err != nil {
		s.engineError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

// BulkRequest is a bulk action over selected emails.
type BulkRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

// BulkResponse acknowledges a bulk action. Records are read-only, so the
// action is recorded but not applied.
type BulkResponse struct {
	Action  string   `json:"action"`
	IDs     []string `json:"ids"`
	Unknown []string `json:"unknown,omitempty"`
	Applied bool     `json:"applied"`
}

var bulkActions = map[string]bool{
	"read": true, "unread": true, "star": true, "unstar": true, "archive": true,
}

// handleBulk acknowledges a bulk action over known email IDs.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	if !s.requireEngine(w) {
		return
	}
	var req BulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !bulkActions[req.Action] {
		writeError(w, http.StatusBadRequest, "invalid_action", "Action must be one of read, unread, star, unstar, archive")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "No emails selected")
		return
	}

	resp := BulkResponse{Action: req.Action, IDs: []string{}}
	for _, id := range req.IDs {
		_, err := s.engine.Get(r.Context(), id)
		switch {
		case err == nil:
			resp.IDs = append(resp.IDs, id)
		case errors.Is(err, query.ErrNotFound):
			resp.Unknown = append(resp.Unknown, id)
		default:
			s.engineError(w, "bulk", err)
			return
		}
	}
	s.logger.Info("bulk action", "action", req.Action, "count", len(resp.IDs), "unknown", len(resp.Unknown))
	writeJSON(w, http.StatusAccepted, resp)
}

// StatsResponse represents the dashboard header counts.
type StatsResponse struct {
	Total        int `json:"total"`
	Unread       int `json:"unread"`
	WithTasks    int `json:"with_tasks"`
	HighPriority int `json:"high_priority"`
}

// handleStats returns inbox statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireEngine(w) {
		return
	}
	st, err := s.engine.Stats(r.Context())
	if err != nil {
		s.engineError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Total:        st.Total,
		Unread:       st.Unread,
		WithTasks:    st.WithTasks,
		HighPriority: st.HighPriority,
	})
}

// handleCategories returns sidebar category counts.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !s.requireEngine(w) {
		return
	}
	counts, err := s.engine.Categories(r.Context())
	if err != nil {
		s.engineError(w, "categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": counts})
}

// handleCompanies returns the distinct sender companies.
func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	if !s.requireEngine(w) {
		return
	}
	companies, err := s.engine.Companies(r.Context())
	if err != nil {
		s.engineError(w, "companies", err)
		return
	}
	if companies == nil {
		companies = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"companies": companies})
}

// AssistantRequest is a chat message.
type AssistantRequest struct {
	Message string `json:"message"`
}

// AssistantResponse is the assistant's reply.
type AssistantResponse struct {
	Reply           string        `json:"reply"`
	Matched         bool          `json:"matched"`
	SuggestedFilter *query.Filter `json:"suggested_filter,omitempty"`
}

// handleAssistant answers one chat message after the simulated think delay.
func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req AssistantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv := assistant.NewConversation(s.script, s.assistant)
	reply, err := conv.Ask(r.Context(), req.Message)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Message must not be empty")
		return
	}
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, "timeout", "Assistant did not reply in time")
		return
	}
	if s.cfg.Server.MetricsEnabled {
		metrics.RecordAssistantReply(reply.Matched)
	}
	writeJSON(w, http.StatusOK, AssistantResponse{
		Reply:           reply.Text,
		Matched:         reply.Matched,
		SuggestedFilter: reply.Suggest,
	})
}

// handleQuickQuestions returns the suggested assistant prompts.
func (s *Server) handleQuickQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"welcome":   assistant.Welcome,
		"questions": assistant.QuickQuestions,
	})
}

// SchedulerStatusResponse represents scheduler status.
type SchedulerStatusResponse struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// handleSchedulerStatus returns background job status.
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler not available")
		return
	}
	jobs := s.scheduler.Status()
	if jobs == nil {
		jobs = []JobStatus{}
	}
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running: s.scheduler.IsRunning(),
		Jobs:    jobs,
	})
}

// handleTriggerJob runs a scheduled job immediately.
func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler not available")
		return
	}
	name := chi.URLParam(r, "name")
	if !s.scheduler.HasJob(name) {
		writeError(w, http.StatusNotFound, "not_found", "No job named "+name)
		return
	}
	if err := s.scheduler.Trigger(name); err != nil {
		writeError(w, http.StatusConflict, "job_conflict", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "job": name})
}
