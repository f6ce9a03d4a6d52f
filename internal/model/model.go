package model

import (
	"context"
	"time"
)

// Mode identifies one of the tutoring modes offered by the UI.
type Mode string

const (
	ModeAsk      Mode = "ask"
	ModeExplain  Mode = "explain"
	ModeQuiz     Mode = "quiz"
	ModeHomework Mode = "homework"
)

// Classes lists the class levels offered in the class selector.
var Classes = []string{"Class 6", "Class 7", "Class 8", "Class 9", "Class 10", "Class 11", "Class 12"}

// Subjects lists the subjects offered in the subject selector.
var Subjects = []string{"Mathematics", "Science", "Social Science", "English", "Hindi"}

// ExplanationType selects how detailed a topic explanation should be.
type ExplanationType string

const (
	ExplainSummary    ExplanationType = "Summary"
	ExplainDetailed   ExplanationType = "Detailed"
	ExplainStepByStep ExplanationType = "Step-by-step"
)

// ExplanationTypes lists the explanation styles in display order.
var ExplanationTypes = []ExplanationType{ExplainSummary, ExplainDetailed, ExplainStepByStep}

// HelpType selects the kind of homework assistance requested.
type HelpType string

const (
	HelpStepByStep      HelpType = "Step-by-step solution"
	HelpConcept         HelpType = "Concept explanation"
	HelpHintOnly        HelpType = "Hint only"
	HelpSimilarExamples HelpType = "Similar examples"
)

// HelpTypes lists the homework help types in display order.
var HelpTypes = []HelpType{HelpStepByStep, HelpConcept, HelpHintOnly, HelpSimilarExamples}

// Difficulty represents quiz difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists the quiz difficulty levels in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// QuestionType represents the kind of questions a quiz contains.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "Multiple Choice"
	QuestionTrueFalse      QuestionType = "True/False"
	QuestionShortAnswer    QuestionType = "Short Answer"
)

// QuestionTypes lists the quiz question types in display order.
var QuestionTypes = []QuestionType{QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer}

// ConversationEntry is one recorded question/answer pair. Entries are values
// and are never modified after being recorded.
type ConversationEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Subject    string         `json:"subject,omitempty"`
	ClassLevel string         `json:"class,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

// QuizQuestion is a single parsed quiz question. Options is only populated
// for multiple-choice quizzes.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Quiz is the structured form of a generated quiz. Error is set when the
// model reply could not be parsed or the model call failed.
type Quiz struct {
	Questions      []QuizQuestion `json:"questions"`
	TotalQuestions int            `json:"total_questions"`
	QuestionType   QuestionType   `json:"question_type"`
	Error          string         `json:"error,omitempty"`
}

// QuizConfig holds the parameters of a quiz generation request.
type QuizConfig struct {
	Chapter      string       `json:"chapter"`
	Subject      string       `json:"subject"`
	ClassLevel   string       `json:"class"`
	NumQuestions int          `json:"num_questions"`
	Difficulty   Difficulty   `json:"difficulty"`
	QuestionType QuestionType `json:"question_type"`
}

// QuestionResult is the evaluation of one quiz answer.
type QuestionResult struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// QuizResult is the evaluation of a whole quiz.
type QuizResult struct {
	Score           int              `json:"score"`
	Total           int              `json:"total"`
	Percentage      float64          `json:"percentage"`
	DetailedResults []QuestionResult `json:"detailed_results"`
	Feedback        string           `json:"feedback"`
}

// Interaction is one logged tutoring turn, across all modes.
type Interaction struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Mode       Mode      `json:"mode"`
	Subject    string    `json:"subject"`
	ClassLevel string    `json:"class"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}

// KnowledgeImport is used for loading knowledge base content from JSON.
type KnowledgeImport struct {
	Subject    string `json:"subject"`
	ClassLevel string `json:"class"`
	Topic      string `json:"topic"`
	Content    string `json:"content"`
}

// Admin is an account allowed to manage the knowledge base.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	BasePath       string // URL prefix for sub-path deployments (e.g. "/tutor")
	SecureCookies  bool   // Set Secure flag on cookies (disable for local dev)
	DefaultClass   string
	DefaultSubject string
	AllowedOrigins []string // CORS origins for the JSON API
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

type adminCtxKey struct{}

// ContextWithAdmin marks the request as coming from an authenticated admin.
func ContextWithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminCtxKey{}, true)
}

// IsAdmin reports whether the request context carries admin credentials.
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(adminCtxKey{}).(bool)
	return ok
}
