// Package prompts renders the model prompts for each tutoring mode from
// text templates embedded in the binary.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/tutor/internal/model"
)

// FS holds the default prompt templates.
//
//go:embed templates/*.txt
var FS embed.FS

const maxInputRunes = 10000

var (
	studentQuestionRegex    = regexp.MustCompile(`(?i)</?\s*student-question\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[model.Mode]*template.Template
)

var templateFiles = map[model.Mode]string{
	model.ModeAsk:      "templates/answer.txt",
	model.ModeExplain:  "templates/explain.txt",
	model.ModeHomework: "templates/homework.txt",
	model.ModeQuiz:     "templates/quiz.txt",
}

var explanationInstructions = map[model.ExplanationType]string{
	model.ExplainSummary:    "Provide a concise overview of the topic covering main points",
	model.ExplainDetailed:   "Give a comprehensive explanation with examples and applications",
	model.ExplainStepByStep: "Break down the topic into easy-to-follow steps",
}

var helpInstructions = map[model.HelpType]string{
	model.HelpStepByStep:      "Provide a complete step-by-step solution with explanations",
	model.HelpConcept:         "Explain the underlying concepts needed to solve this problem",
	model.HelpHintOnly:        "Give helpful hints to guide the student without giving away the answer",
	model.HelpSimilarExamples: "Provide similar examples to help understand the pattern",
}

var questionFormats = map[model.QuestionType]string{
	model.QuestionMultipleChoice: "Provide 4 options (A, B, C, D) with one correct answer",
	model.QuestionTrueFalse:      "Create statements that can be answered with True or False",
	model.QuestionShortAnswer:    "Create questions requiring brief written answers",
}

// Data is the template input shared by all modes. Fields a template does
// not reference are ignored.
type Data struct {
	ClassLevel   string
	Subject      string
	Input        string
	Context      string
	History      string
	Style        string
	Instruction  string
	NumQuestions int
	Difficulty   model.Difficulty
	QuestionType model.QuestionType
	AnswerFormat string
}

// Load parses the four mode templates from fsys. Only the first call has
// any effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		loaded := make(map[model.Mode]*template.Template, len(templateFiles))
		for mode, file := range templateFiles {
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(mode)).Option("missingkey=error").Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			loaded[mode] = tmpl
		}
		templates = loaded
	})
	return loadErr
}

// ExplanationInstruction returns the instruction for an explanation style.
func ExplanationInstruction(t model.ExplanationType) string {
	if s, ok := explanationInstructions[t]; ok {
		return s
	}
	return "Provide a clear explanation"
}

// HelpInstruction returns the instruction for a homework help type.
func HelpInstruction(t model.HelpType) string {
	if s, ok := helpInstructions[t]; ok {
		return s
	}
	return "Provide appropriate help"
}

// QuestionFormat returns the question-writing instruction for a quiz type.
func QuestionFormat(t model.QuestionType) string {
	if s, ok := questionFormats[t]; ok {
		return s
	}
	return "Create appropriate questions"
}

// AnswerFormat returns the per-question answer block the model is asked to
// reproduce. Short Answer is also the fallback.
func AnswerFormat(t model.QuestionType) string {
	switch t {
	case model.QuestionMultipleChoice:
		return "A) [Option A]\nB) [Option B]\nC) [Option C]\nD) [Option D]"
	case model.QuestionTrueFalse:
		return "Options: True / False"
	default:
		return "Answer: [Brief answer expected]"
	}
}

// BuildAnswer renders the ask-doubt prompt. history may be empty.
func BuildAnswer(question, subject, classLevel, kbContext, history string) (string, error) {
	return render(model.ModeAsk, Data{
		ClassLevel: classLevel,
		Subject:    subject,
		Input:      Sanitize(question),
		Context:    kbContext,
		History:    strings.TrimSpace(history),
	})
}

// BuildExplain renders the topic explanation prompt.
func BuildExplain(topic, subject, classLevel, kbContext string, style model.ExplanationType) (string, error) {
	return render(model.ModeExplain, Data{
		ClassLevel:  classLevel,
		Subject:     subject,
		Input:       Sanitize(topic),
		Context:     kbContext,
		Style:       string(style),
		Instruction: ExplanationInstruction(style),
	})
}

// BuildHomework renders the homework help prompt.
func BuildHomework(problem, subject, classLevel, kbContext string, help model.HelpType) (string, error) {
	return render(model.ModeHomework, Data{
		ClassLevel:  classLevel,
		Subject:     subject,
		Input:       Sanitize(problem),
		Context:     kbContext,
		Style:       string(help),
		Instruction: HelpInstruction(help),
	})
}

// BuildQuiz renders the quiz generation prompt. The chapter is flattened to
// one line since it is interpolated into instruction sentences.
func BuildQuiz(cfg model.QuizConfig) (string, error) {
	return render(model.ModeQuiz, Data{
		ClassLevel:   cfg.ClassLevel,
		Subject:      cfg.Subject,
		Input:        strings.Join(strings.Fields(Sanitize(cfg.Chapter)), " "),
		NumQuestions: cfg.NumQuestions,
		Difficulty:   cfg.Difficulty,
		QuestionType: cfg.QuestionType,
		Instruction:  QuestionFormat(cfg.QuestionType),
		AnswerFormat: AnswerFormat(cfg.QuestionType),
	})
}

func render(mode model.Mode, data Data) (string, error) {
	if templates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[mode]
	if !ok {
		return "", fmt.Errorf("no prompt template for mode %q", mode)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", mode, err)
	}
	return buf.String(), nil
}

// Sanitize strips the delimiter tags used in the templates and truncates
// very long input.
func Sanitize(input string) string {
	input = studentQuestionRegex.ReplaceAllString(input, "")
	input = systemInstructionsRegex.ReplaceAllString(input, "")
	input = strings.TrimSpace(input)

	if utf8.RuneCountInString(input) > maxInputRunes {
		runes := []rune(input)
		input = string(runes[:maxInputRunes]) + "\n\n[Input truncated due to length]"
	}
	return input
}
