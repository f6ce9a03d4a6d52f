package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/tutor/internal/handler/views"
	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/knowledge"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/quiz"
	"github.com/pavelanni/tutor/internal/session"
	"github.com/pavelanni/tutor/internal/store"
	"github.com/pavelanni/tutor/internal/tutor"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	tutor    *tutor.Service
	kb       *knowledge.Base
	sessions *session.Manager
	signer   *session.Signer
	store    *store.Store
	config   model.ServerConfig
}

// New creates a new Handler.
func New(svc *tutor.Service, kb *knowledge.Base, sessions *session.Manager, signer *session.Signer, s *store.Store, cfg model.ServerConfig) (*Handler, error) {
	if svc == nil || kb == nil || sessions == nil || signer == nil || s == nil {
		return nil, errors.New("handler: missing dependency")
	}
	return &Handler{tutor: svc, kb: kb, sessions: sessions, signer: signer, store: s, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(h.corsMiddleware())
		api.Use(h.sessionMiddleware)
		h.apiRoutes(api)
	})

	r.Group(func(pages chi.Router) {
		pages.Use(h.sessionMiddleware)
		pages.Use(h.csrfMiddleware)
		pages.Get("/", h.handleIndex)
		pages.Post("/ask", h.handleAsk)
		pages.Post("/explain", h.handleExplain)
		pages.Post("/homework", h.handleHomework)
		pages.Post("/quiz", h.handleQuiz)
		pages.Post("/quiz/submit", h.handleQuizSubmit)
		pages.Get("/history", h.handleHistory)
		pages.Post("/history/clear", h.handleHistoryClear)
		pages.Get("/stats", h.handleStats)

		pages.Get("/admin/login", h.handleLoginPage)
		pages.Post("/admin/login", h.handleLogin)
		pages.Post("/admin/logout", h.handleLogout)
		pages.Group(func(admin chi.Router) {
			admin.Use(h.requireAdmin)
			admin.Get("/admin/knowledge", h.handleAdminKnowledgePage)
			admin.Post("/admin/knowledge", h.handleAddKnowledge)
			admin.Post("/admin/knowledge/upload", h.handleUploadKnowledge)
		})
	})
}

// BasePathMiddleware stores the configured URL prefix in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes an absolute route with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"model":    h.tutor.Model(),
		"sessions": h.sessions.Len(),
	})
}

// selection applies the class and subject posted with a form to the
// session and returns the effective pair. Unknown values are ignored.
func selection(r *http.Request, s *session.Session) (classLevel, subject string) {
	c := strings.TrimSpace(r.FormValue("class"))
	if !slices.Contains(model.Classes, c) {
		c = ""
	}
	sub := strings.TrimSpace(r.FormValue("subject"))
	if !slices.Contains(model.Subjects, sub) {
		sub = ""
	}
	s.SetSelection(c, sub)
	return s.Selection()
}

func (h *Handler) indexData(r *http.Request, s *session.Session, mode model.Mode) views.IndexData {
	classLevel, subject := selection(r, s)
	return views.IndexData{
		Mode:         mode,
		ClassLevel:   classLevel,
		Subject:      subject,
		Topics:       h.kb.Topics(subject, classLevel),
		HistoryCount: s.Memory.Len(),
	}
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, d views.IndexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Header.Get("HX-Request") == "true" && d.Output != "" {
		if err := views.Reply(d.Output, d.Model).Render(r.Context(), w); err != nil {
			slog.Error("render error", "error", err)
		}
		return
	}
	if err := views.IndexPage(d).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	mode := model.Mode(r.URL.Query().Get("mode"))
	switch mode {
	case model.ModeAsk, model.ModeExplain, model.ModeHomework, model.ModeQuiz:
	default:
		mode = model.ModeAsk
	}
	d := h.indexData(r, s, mode)
	if mode == model.ModeQuiz {
		if q, ok := s.Quiz(); ok {
			d.Quiz = &q
		}
	}
	h.renderIndex(w, r, d)
}

func turn(s *session.Session, d views.IndexData, input string) tutor.Request {
	return tutor.Request{
		SessionID:  s.ID,
		Subject:    d.Subject,
		ClassLevel: d.ClassLevel,
		Input:      input,
		Memory:     s.Memory,
	}
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	d := h.indexData(r, s, model.ModeAsk)
	d.Input = r.FormValue("question")
	d.Output = h.tutor.AskDoubt(r.Context(), turn(s, d, d.Input))
	d.Model = h.tutor.Model()
	d.HistoryCount = s.Memory.Len()
	h.renderIndex(w, r, d)
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	d := h.indexData(r, s, model.ModeExplain)
	d.Input = r.FormValue("topic")
	style := model.ExplanationType(r.FormValue("explanation_type"))
	d.Output = h.tutor.ExplainTopic(r.Context(), turn(s, d, d.Input), style)
	d.Model = h.tutor.Model()
	h.renderIndex(w, r, d)
}

func (h *Handler) handleHomework(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	d := h.indexData(r, s, model.ModeHomework)
	d.Input = r.FormValue("problem")
	help := model.HelpType(r.FormValue("help_type"))
	d.Output = h.tutor.HomeworkHelp(r.Context(), turn(s, d, d.Input), help)
	d.Model = h.tutor.Model()
	h.renderIndex(w, r, d)
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	d := h.indexData(r, s, model.ModeQuiz)
	d.Input = r.FormValue("chapter")
	n, _ := strconv.Atoi(r.FormValue("num_questions"))

	q := h.tutor.GenerateQuiz(r.Context(), s.ID, model.QuizConfig{
		Chapter:      d.Input,
		Subject:      d.Subject,
		ClassLevel:   d.ClassLevel,
		NumQuestions: n,
		Difficulty:   model.Difficulty(r.FormValue("difficulty")),
		QuestionType: model.QuestionType(r.FormValue("question_type")),
	})
	if len(q.Questions) > 0 {
		s.SetQuiz(q)
	}
	d.Quiz = &q
	h.renderIndex(w, r, d)
}

func (h *Handler) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	q, ok := s.TakeQuiz()
	if !ok {
		http.Error(w, appI18n.T(r.Context(), "NoQuizPending"), http.StatusBadRequest)
		return
	}

	answers := make([]string, len(q.Questions))
	for i, qq := range q.Questions {
		answers[i] = chosenAnswer(qq, r.FormValue("answer_"+strconv.Itoa(i)))
	}
	res := h.tutor.EvaluateQuiz(q, answers)

	d := h.indexData(r, s, model.ModeQuiz)
	d.QuizResult = &res
	h.renderIndex(w, r, d)
}

// chosenAnswer converts a submitted option letter into the form the
// correct answer was written in: the bare letter, "B) text" or the option
// text. Anything that is not an option letter passes through.
func chosenAnswer(q model.QuizQuestion, given string) string {
	given = strings.TrimSpace(given)
	idx := -1
	for i := range q.Options {
		if strings.EqualFold(given, quiz.OptionLabel(i)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return given
	}
	letter := quiz.OptionLabel(idx)

	stored := strings.TrimSpace(q.CorrectAnswer)
	storedLetter, labelled := answerLabel(stored)
	switch {
	case !labelled:
		return q.Options[idx]
	case len(stored) == 1:
		return letter
	case strings.EqualFold(storedLetter, letter):
		return stored
	default:
		return letter + ") " + q.Options[idx]
	}
}

// answerLabel reports whether an answer is an option letter, alone or
// followed by ")".
func answerLabel(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for i := 0; quiz.OptionLabel(i) != ""; i++ {
		l := quiz.OptionLabel(i)
		if strings.EqualFold(s, l) || (len(s) >= 2 && strings.EqualFold(s[:2], l+")")) {
			return l, true
		}
	}
	return "", false
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var entries []model.ConversationEntry
	if query != "" {
		entries = s.Memory.Search(query, 0)
	} else {
		entries = s.Memory.History(0)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.HistoryPage(entries, query).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	s.Memory.Clear()
	slog.Info("history cleared", "session", s.ID)
	http.Redirect(w, r, h.path("/history"), http.StatusSeeOther)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.StatsPage(s.Memory.Statistics()).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
