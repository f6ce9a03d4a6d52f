package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/session"
	"github.com/pavelanni/tutor/internal/tutor"
)

const maxJSONBody = 1 << 20

func (h *Handler) apiRoutes(r chi.Router) {
	r.Post("/ask", h.apiAsk)
	r.Post("/explain", h.apiExplain)
	r.Post("/homework", h.apiHomework)
	r.Post("/quiz", h.apiQuiz)
	r.Post("/quiz/evaluate", h.apiEvaluateQuiz)
	r.Get("/history", h.apiHistory)
	r.Delete("/history", h.apiClearHistory)
	r.Get("/history/search", h.apiSearchHistory)
	r.Get("/stats", h.apiStats)
	r.Get("/topics", h.apiTopics)
}

func (h *Handler) corsMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   h.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{sessionTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// apiSelection applies an optional class and subject to the session.
// Blank values keep the session's choice; unknown ones are rejected.
func apiSelection(w http.ResponseWriter, s *session.Session, classLevel, subject string) (string, string, bool) {
	classLevel, subject = strings.TrimSpace(classLevel), strings.TrimSpace(subject)
	if classLevel != "" && !slices.Contains(model.Classes, classLevel) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown class %q", classLevel))
		return "", "", false
	}
	if subject != "" && !slices.Contains(model.Subjects, subject) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown subject %q", subject))
		return "", "", false
	}
	s.SetSelection(classLevel, subject)
	c, sub := s.Selection()
	return c, sub, true
}

type replyResponse struct {
	Mode  model.Mode `json:"mode"`
	Reply string     `json:"reply"`
	Model string     `json:"model"`
}

type askRequest struct {
	Question   string `json:"question"`
	Subject    string `json:"subject"`
	ClassLevel string `json:"class"`
}

func (h *Handler) apiAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	classLevel, subject, ok := apiSelection(w, s, req.ClassLevel, req.Subject)
	if !ok {
		return
	}
	reply := h.tutor.AskDoubt(r.Context(), tutor.Request{
		SessionID: s.ID, Subject: subject, ClassLevel: classLevel, Input: req.Question, Memory: s.Memory,
	})
	writeJSON(w, http.StatusOK, replyResponse{Mode: model.ModeAsk, Reply: reply, Model: h.tutor.Model()})
}

type explainRequest struct {
	Topic           string                `json:"topic"`
	Subject         string                `json:"subject"`
	ClassLevel      string                `json:"class"`
	ExplanationType model.ExplanationType `json:"explanation_type"`
}

func (h *Handler) apiExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	classLevel, subject, ok := apiSelection(w, s, req.ClassLevel, req.Subject)
	if !ok {
		return
	}
	reply := h.tutor.ExplainTopic(r.Context(), tutor.Request{
		SessionID: s.ID, Subject: subject, ClassLevel: classLevel, Input: req.Topic,
	}, req.ExplanationType)
	writeJSON(w, http.StatusOK, replyResponse{Mode: model.ModeExplain, Reply: reply, Model: h.tutor.Model()})
}

type homeworkRequest struct {
	Problem    string         `json:"problem"`
	Subject    string         `json:"subject"`
	ClassLevel string         `json:"class"`
	HelpType   model.HelpType `json:"help_type"`
}

func (h *Handler) apiHomework(w http.ResponseWriter, r *http.Request) {
	var req homeworkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := sessionFrom(r)
	classLevel, subject, ok := apiSelection(w, s, req.ClassLevel, req.Subject)
	if !ok {
		return
	}
	reply := h.tutor.HomeworkHelp(r.Context(), tutor.Request{
		SessionID: s.ID, Subject: subject, ClassLevel: classLevel, Input: req.Problem,
	}, req.HelpType)
	writeJSON(w, http.StatusOK, replyResponse{Mode: model.ModeHomework, Reply: reply, Model: h.tutor.Model()})
}

func (h *Handler) apiQuiz(w http.ResponseWriter, r *http.Request) {
	var cfg model.QuizConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	s := sessionFrom(r)
	classLevel, subject, ok := apiSelection(w, s, cfg.ClassLevel, cfg.Subject)
	if !ok {
		return
	}
	cfg.ClassLevel, cfg.Subject = classLevel, subject

	q := h.tutor.GenerateQuiz(r.Context(), s.ID, cfg)
	if len(q.Questions) > 0 {
		s.SetQuiz(q)
	}
	writeJSON(w, http.StatusOK, q)
}

type evaluateRequest struct {
	Answers []string `json:"answers"`
	// Quiz is optional; the session's pending quiz is used when absent.
	Quiz *model.Quiz `json:"quiz,omitempty"`
}

func (h *Handler) apiEvaluateQuiz(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q := req.Quiz
	if q == nil {
		pending, ok := sessionFrom(r).TakeQuiz()
		if !ok {
			writeError(w, http.StatusConflict, "no quiz in progress")
			return
		}
		q = &pending
	}
	writeJSON(w, http.StatusOK, h.tutor.EvaluateQuiz(*q, req.Answers))
}

// queryLimit reads ?limit=, treating absent or invalid values as 0 (all).
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (h *Handler) apiHistory(w http.ResponseWriter, r *http.Request) {
	mem := sessionFrom(r).Memory
	limit := queryLimit(r)
	q := r.URL.Query()

	var entries []model.ConversationEntry
	switch {
	case q.Get("subject") != "":
		entries = mem.BySubject(q.Get("subject"), limit)
	case q.Get("class") != "":
		entries = mem.ByClass(q.Get("class"), limit)
	default:
		entries = mem.History(limit)
	}
	if entries == nil {
		entries = []model.ConversationEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) apiSearchHistory(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	entries := sessionFrom(r).Memory.Search(query, queryLimit(r))
	if entries == nil {
		entries = []model.ConversationEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) apiClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Memory.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Memory.Statistics())
}

func (h *Handler) apiTopics(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	q := r.URL.Query()
	classLevel, subject, ok := apiSelection(w, s, q.Get("class"), q.Get("subject"))
	if !ok {
		return
	}
	topics := h.kb.SuggestTopics(subject, classLevel, q.Get("q"), queryLimit(r))
	if topics == nil {
		topics = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject": subject,
		"class":   classLevel,
		"topics":  topics,
	})
}
