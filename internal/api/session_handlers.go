package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/metrics"
	"github.com/spinabot/spinabot/internal/onboard"
	"github.com/spinabot/spinabot/internal/secret"
	"github.com/spinabot/spinabot/internal/session"
)

type sessionCtxKey struct{}

// sessionFrom returns the session loaded by sessionMiddleware.
func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return s
}

// sessionToken reads the session token from the cookie or header.
func sessionToken(r *http.Request) string {
	if tok := r.Header.Get(session.HeaderName); tok != "" {
		return tok
	}
	if c, err := r.Cookie(session.CookieName); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) sessionsReady(w http.ResponseWriter) bool {
	if s.sessions == nil || s.tokens == nil || s.flow == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions_unavailable", "Sessions not available")
		return false
	}
	return true
}

// sessionMiddleware resolves the request's session and stores it in the
// request context.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.sessionsReady(w) {
			return
		}
		tok := sessionToken(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "session_required", "Missing session token")
			return
		}
		id, err := s.tokens.Parse(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "session_required", "Invalid or expired session token")
			return
		}
		sess, err := s.sessions.Load(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "session_required", "Session expired")
			return
		}
		if err != nil {
			s.logger.Error("load session failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load session")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey{}, sess)))
	})
}

// CredentialView describes a stored credential without its contents.
type CredentialView struct {
	Tool      string    `json:"tool"`
	Sealed    bool      `json:"sealed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskToolView is the connected task tool without its API key.
type TaskToolView struct {
	Tool        string `json:"tool"`
	APIKey      string `json:"api_key"`
	APIURL      string `json:"api_url"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	Connected   bool   `json:"connected"`
}

// SessionView is the client-facing session with defaults applied.
type SessionView struct {
	ID                string           `json:"id"`
	Provider          string           `json:"provider"`
	UserEmail         string           `json:"user_email"`
	ConnectedEmail    string           `json:"connected_email,omitempty"`
	ConnectedTool     string           `json:"connected_tool,omitempty"`
	TaskTool          string           `json:"task_tool"`
	TaskToolSkipped   bool             `json:"task_tool_skipped"`
	TaskToolConfig    *TaskToolView    `json:"task_tool_config,omitempty"`
	Credentials       []CredentialView `json:"credentials"`
	EmailCount        int              `json:"email_count"`
	IsConnected       bool             `json:"is_connected"`
	OnboardingAnswers map[int]string   `json:"onboarding_answers"`
	QuizComplete      bool             `json:"quiz_complete"`
	Theme             string           `json:"theme"`
	CreatedAt         time.Time        `json:"created_at"`
	ExpiresAt         time.Time        `json:"expires_at,omitzero"`
}

func (s *Server) sessionView(sess *session.Session) SessionView {
	v := SessionView{
		ID:                sess.ID,
		Provider:          sess.ProviderID(),
		UserEmail:         sess.Email(),
		ConnectedEmail:    sess.ConnectedEmail,
		ConnectedTool:     sess.ConnectedTool,
		TaskTool:          sess.TaskToolID(),
		TaskToolSkipped:   sess.TaskToolSkipped,
		Credentials:       []CredentialView{},
		EmailCount:        sess.Count(),
		IsConnected:       sess.IsConnected,
		OnboardingAnswers: sess.OnboardingAnswers,
		QuizComplete:      s.flow.QuizComplete(sess),
		Theme:             sess.ThemeName(),
		CreatedAt:         sess.CreatedAt,
		ExpiresAt:         sess.ExpiresAt,
	}
	if v.OnboardingAnswers == nil {
		v.OnboardingAnswers = map[int]string{}
	}
	if tc := sess.TaskToolConfig; tc != nil {
		masked := "****"
		if plain, err := s.flow.OpenCredential(tc.APIKey); err == nil {
			masked = secret.Mask(plain)
		}
		v.TaskToolConfig = &TaskToolView{
			Tool:        tc.Tool,
			APIKey:      masked,
			APIURL:      tc.APIURL,
			WorkspaceID: tc.WorkspaceID,
			Connected:   tc.Connected,
		}
	}
	for _, c := range sess.ToolCredentials {
		v.Credentials = append(v.Credentials, CredentialView{Tool: c.Tool, Sealed: c.Sealed, UpdatedAt: c.UpdatedAt})
	}
	sort.Slice(v.Credentials, func(i, j int) bool { return v.Credentials[i].Tool < v.Credentials[j].Tool })
	return v
}

// StepResponse is returned by every onboarding operation. Token is the
// reissued session handle; the previous one expires at the old deadline.
type StepResponse struct {
	Session SessionView `json:"session"`
	Next    string      `json:"next"`
	Token   string      `json:"token"`
}

// CreateSessionResponse carries a new session and its token.
type CreateSessionResponse struct {
	Token   string      `json:"token"`
	Session SessionView `json:"session"`
}

// handleCreateSession starts a new session and sets its cookie.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsReady(w) {
		return
	}
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.logger.Error("create session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create session")
		return
	}
	tok, err := s.issueHandle(w, sess)
	if err != nil {
		s.logger.Error("issue session token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to create session")
		return
	}
	s.logger.Info("session created", "session", sess.ID)
	writeJSON(w, http.StatusCreated, CreateSessionResponse{Token: tok, Session: s.sessionView(sess)})
}

// issueHandle signs a token for the session's current expiry and hands it
// back through the cookie and the X-Session-Token response header.
func (s *Server) issueHandle(w http.ResponseWriter, sess *session.Session) (string, error) {
	tok, err := s.tokens.Issue(sess.ID, sess.ExpiresAt)
	if err != nil {
		return "", err
	}
	cookie := &http.Cookie{
		Name:     session.CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !sess.ExpiresAt.IsZero() {
		cookie.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, cookie)
	w.Header().Set(session.HeaderName, tok)
	return tok, nil
}

// persistSession saves sess, which slides its expiry, and reissues the
// handle to match. It writes the error response and returns false on failure.
func (s *Server) persistSession(w http.ResponseWriter, r *http.Request, sess *session.Session) (string, bool) {
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.logger.Error("save session failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to save session")
		return "", false
	}
	tok, err := s.issueHandle(w, sess)
	if err != nil {
		s.logger.Error("issue session token failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to refresh session token")
		return "", false
	}
	return tok, true
}

// handleGetSession returns the current session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView(sessionFrom(r.Context())))
}

// handleDeleteSession ends the current session and clears the cookie.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.sessions.Delete(r.Context(), sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.Error("delete session failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete session")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// GuardResponse reports whether a step may be shown.
type GuardResponse struct {
	Step     string `json:"step"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// handleGuard checks a step's prerequisites against the session.
func (s *Server) handleGuard(w http.ResponseWriter, r *http.Request) {
	st, ok := onboard.ParseStep(chi.URLParam(r, "step"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Unknown step")
		return
	}
	to := onboard.Guard(sessionFrom(r.Context()), st)
	writeJSON(w, http.StatusOK, GuardResponse{Step: string(st), Allowed: to == "", Redirect: string(to)})
}

// finishStep maps an onboarding result onto the response, saving the
// session on success.
func (s *Server) finishStep(w http.ResponseWriter, r *http.Request, sess *session.Session, step onboard.Step, err error) {
	if err != nil {
		if s.cfg.Server.MetricsEnabled {
			metrics.RecordOnboarding(string(step), "error")
		}
		var verr *onboard.ValidationError
		var rerr *onboard.RedirectError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error: "validation_failed", Message: verr.Message, Field: verr.Field,
			})
		case errors.As(err, &rerr):
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error: "redirect", Message: err.Error(), Redirect: string(rerr.To),
			})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "timeout", "Request timed out")
		default:
			s.logger.Error("onboarding step failed", "step", step, "session", sess.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Onboarding step failed")
		}
		return
	}

	tok, ok := s.persistSession(w, r, sess)
	if !ok {
		return
	}
	if s.cfg.Server.MetricsEnabled {
		metrics.RecordOnboarding(string(step), "ok")
	}
	writeJSON(w, http.StatusOK, StepResponse{Session: s.sessionView(sess), Next: string(onboard.Next(sess, step)), Token: tok})
}

type idRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSelectProvider(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	s.finishStep(w, r, sess, onboard.StepProviders, s.flow.SelectProvider(sess, req.ID))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	s.finishStep(w, r, sess, onboard.StepLogin, s.flow.Login(r.Context(), sess, req.Email, req.Password))
}

type integrationRequest struct {
	EmailProvider string `json:"email_provider"`
	Tool          string `json:"tool"`
}

func (s *Server) handleSelectIntegration(w http.ResponseWriter, r *http.Request) {
	var req integrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	s.finishStep(w, r, sess, onboard.StepIntegrations, s.flow.SelectIntegration(sess, req.EmailProvider, req.Tool))
}

func (s *Server) handleToolCredentials(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decodeJSON(w, r, &fields) {
		return
	}
	sess := sessionFrom(r.Context())
	s.finishStep(w, r, sess, onboard.StepToolCredentials, s.flow.SubmitToolCredentials(r.Context(), sess, fields))
}

func (s *Server) handleSelectTaskTool(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	s.finishStep(w, r, sess, onboard.StepTaskSelection, s.flow.SelectTaskTool(sess, req.ID))
}

func (s *Server) handleSkipTaskTool(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.flow.SkipTaskTool(sess)
	s.finishStep(w, r, sess, onboard.StepTaskSelection, nil)
}

func (s *Server) handleTaskCredentials(w http.ResponseWriter, r *http.Request) {
	var req onboard.TaskCredentials
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	s.finishStep(w, r, sess, onboard.StepTaskCredentials, s.flow.SubmitTaskCredentials(r.Context(), sess, req))
}

type answerRequest struct {
	Question int    `json:"question"`
	Answer   string `json:"answer"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	s.finishStep(w, r, sess, onboard.StepOnboarding, s.flow.AnswerQuestion(sess, req.Question, req.Answer))
}

type connectRequest struct {
	EmailCount int `json:"email_count"`
}

// ConnectResponse adds the connection steps that ran.
type ConnectResponse struct {
	StepResponse
	Steps []string `json:"steps"`
}

// handleConnect runs the simulated inbox connection. The step messages are
// returned together once the connection completes.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	var steps []string
	err := s.flow.Connect(r.Context(), sess, req.EmailCount, func(_, _ int, msg string) {
		steps = append(steps, msg)
	})
	if err != nil {
		s.finishStep(w, r, sess, onboard.StepEmailSettings, err)
		return
	}
	tok, ok := s.persistSession(w, r, sess)
	if !ok {
		return
	}
	if s.cfg.Server.MetricsEnabled {
		metrics.RecordOnboarding(string(onboard.StepEmailSettings), "ok")
	}
	writeJSON(w, http.StatusOK, ConnectResponse{
		StepResponse: StepResponse{Session: s.sessionView(sess), Next: string(onboard.StepDashboard), Token: tok},
		Steps:        steps,
	})
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// handleTheme sets the theme, or toggles it when none is given.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	sess := sessionFrom(r.Context())
	switch req.Theme {
	case "":
		if sess.ThemeName() == "dark" {
			sess.Theme = "light"
		} else {
			sess.Theme = "dark"
		}
	case "dark", "light":
		sess.Theme = req.Theme
	default:
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation_failed", Message: "Theme must be dark or light", Field: "theme",
		})
		return
	}
	if _, ok := s.persistSession(w, r, sess); !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView(sess))
}

func (s *Server) handleCatalogProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]catalog.Provider{"providers": s.catalog.Providers})
}

func (s *Server) handleCatalogTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]catalog.Integration{"tools": s.catalog.Integrations})
}

func (s *Server) handleCatalogTaskTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]catalog.TaskTool{"task_tools": s.catalog.TaskTools})
}

func (s *Server) handleCatalogQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]catalog.Question{"questions": s.catalog.Questions})
}

func (s *Server) handleCatalogProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": s.catalog.Products,
		"agents":   s.catalog.Agents,
		"features": s.catalog.Features,
	})
}
