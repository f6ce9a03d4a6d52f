package quiz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pavelanni/tutor/internal/model"
)

// Bounds on the number of questions per quiz.
const (
	MinQuestions     = 3
	MaxQuestions     = 10
	DefaultQuestions = 5
)

// Normalize fills defaults and clamps the question count into range.
func Normalize(cfg model.QuizConfig) model.QuizConfig {
	cfg.Chapter = strings.TrimSpace(cfg.Chapter)
	switch {
	case cfg.NumQuestions == 0:
		cfg.NumQuestions = DefaultQuestions
	case cfg.NumQuestions < MinQuestions:
		cfg.NumQuestions = MinQuestions
	case cfg.NumQuestions > MaxQuestions:
		cfg.NumQuestions = MaxQuestions
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = model.DifficultyMedium
	}
	if cfg.QuestionType == "" {
		cfg.QuestionType = model.QuestionMultipleChoice
	}
	return cfg
}

// Validate checks the enumerated fields of a normalized config.
func Validate(cfg model.QuizConfig) error {
	if cfg.Chapter == "" {
		return fmt.Errorf("chapter or topic is required")
	}
	if !slices.Contains(model.Difficulties, cfg.Difficulty) {
		return fmt.Errorf("unknown difficulty %q", cfg.Difficulty)
	}
	if !slices.Contains(model.QuestionTypes, cfg.QuestionType) {
		return fmt.Errorf("unknown question type %q", cfg.QuestionType)
	}
	if cfg.NumQuestions < MinQuestions || cfg.NumQuestions > MaxQuestions {
		return fmt.Errorf("number of questions must be between %d and %d", MinQuestions, MaxQuestions)
	}
	return nil
}
