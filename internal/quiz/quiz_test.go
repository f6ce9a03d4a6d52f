package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/tutor/internal/model"
)

func TestParseMultipleChoice(t *testing.T) {
	text := "Question 1: What is 2+2?\nA) 3\nB) 4\nC) 5\nD) 6\nCorrect Answer: B"

	q := Parse(text, model.QuestionMultipleChoice)
	require.Empty(t, q.Error)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, 1, q.TotalQuestions)
	assert.Equal(t, model.QuestionMultipleChoice, q.QuestionType)
	assert.Equal(t, "What is 2+2?", q.Questions[0].Question)
	assert.Equal(t, []string{"3", "4", "5", "6"}, q.Questions[0].Options)
	assert.Equal(t, "B", q.Questions[0].CorrectAnswer)
}

func TestParseSeveralQuestionsWithNoise(t *testing.T) {
	text := `Here is your quiz!

    Question 1: Which gas do plants absorb?
    A) Oxygen
    B) Carbon dioxide
    C) Nitrogen
    D) Helium
    Correct Answer: B

    Question 2: What is the pH of pure water?
    continued on a second line that is dropped
    A) 7
    B) 1
    C) 14
    D) 0
    Correct Answer: A
    Good luck!`

	q := Parse(text, model.QuestionMultipleChoice)
	require.Len(t, q.Questions, 2)
	assert.Equal(t, 2, q.TotalQuestions)
	assert.Equal(t, "Which gas do plants absorb?", q.Questions[0].Question)
	assert.Equal(t, "What is the pH of pure water?", q.Questions[1].Question)
	assert.Equal(t, []string{"7", "1", "14", "0"}, q.Questions[1].Options)
	assert.Equal(t, "A", q.Questions[1].CorrectAnswer)
}

func TestParseTrueFalseIgnoresOptions(t *testing.T) {
	text := "Question 1: The sun is a star.\nOptions: True / False\nA) not an option here\nCorrect Answer: True"

	q := Parse(text, model.QuestionTrueFalse)
	require.Len(t, q.Questions, 1)
	assert.Nil(t, q.Questions[0].Options)
	assert.Equal(t, "True", q.Questions[0].CorrectAnswer)
}

func TestParseQuestionWithoutColon(t *testing.T) {
	q := Parse("Question one about integers\nCorrect Answer: zero", model.QuestionShortAnswer)
	require.Len(t, q.Questions, 1)
	assert.Equal(t, "Question one about integers", q.Questions[0].Question)
	assert.Equal(t, "zero", q.Questions[0].CorrectAnswer)
}

func TestParseFallback(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		qtype model.QuestionType
	}{
		{"empty", "", model.QuestionMultipleChoice},
		{"prose only", "I cannot produce a quiz about that.", model.QuestionShortAnswer},
		{"lowercase marker", "question 1: lower case marker", model.QuestionTrueFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.text, tt.qtype)
			assert.Equal(t, ParseFailedMessage, q.Error)
			require.Len(t, q.Questions, 1)
			assert.Equal(t, 1, q.TotalQuestions)
			assert.Equal(t, tt.qtype, q.QuestionType)
		})
	}
}

func TestFallbackShape(t *testing.T) {
	mc := Fallback(model.QuestionMultipleChoice)
	assert.Equal(t, []string{"Option A", "Option B", "Option C", "Option D"}, mc.Questions[0].Options)
	assert.Equal(t, "Option A", mc.Questions[0].CorrectAnswer)

	tf := Fallback(model.QuestionTrueFalse)
	assert.Nil(t, tf.Questions[0].Options)
	assert.Equal(t, "True", tf.Questions[0].CorrectAnswer)
}

func TestEvaluateAllCorrect(t *testing.T) {
	q := model.Quiz{Questions: []model.QuizQuestion{
		{Question: "q1", CorrectAnswer: "B"},
		{Question: "q2", CorrectAnswer: "True"},
		{Question: "q3", CorrectAnswer: "Photosynthesis"},
	}}

	res := Evaluate(q, []string{" b ", "TRUE", "photosynthesis  "})
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 3, res.Total)
	assert.InDelta(t, 100.0, res.Percentage, 1e-9)
	assert.Equal(t, feedbackTiers[0].message, res.Feedback)
	for _, d := range res.DetailedResults {
		assert.True(t, d.IsCorrect)
	}
}

func TestEvaluateMissingAnswers(t *testing.T) {
	q := model.Quiz{Questions: []model.QuizQuestion{
		{Question: "q1", CorrectAnswer: "A"},
		{Question: "q2", CorrectAnswer: "B"},
		{Question: "q3", CorrectAnswer: "C"},
		{Question: "q4", CorrectAnswer: "D"},
	}}

	res := Evaluate(q, []string{"A"})
	assert.Equal(t, 1, res.Score)
	assert.InDelta(t, 25.0, res.Percentage, 1e-9)
	assert.Equal(t, lowestTierFeedback, res.Feedback)
	require.Len(t, res.DetailedResults, 4)
	assert.Equal(t, "", res.DetailedResults[3].UserAnswer)
	assert.False(t, res.DetailedResults[3].IsCorrect)
}

func TestEvaluateEmptyQuiz(t *testing.T) {
	res := Evaluate(model.Quiz{}, []string{"extra"})
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0.0, res.Percentage)
	assert.Equal(t, lowestTierFeedback, res.Feedback)
	assert.NotNil(t, res.DetailedResults)
}

func TestFeedbackTiers(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, feedbackTiers[0].message},
		{90, feedbackTiers[0].message},
		{89.9, feedbackTiers[1].message},
		{75, feedbackTiers[1].message},
		{60, feedbackTiers[2].message},
		{40, feedbackTiers[3].message},
		{39.99, lowestTierFeedback},
		{0, lowestTierFeedback},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Feedback(tt.pct), "percentage %v", tt.pct)
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Normalize(model.QuizConfig{Chapter: "  Acids and Bases  "})
	assert.Equal(t, "Acids and Bases", cfg.Chapter)
	assert.Equal(t, DefaultQuestions, cfg.NumQuestions)
	assert.Equal(t, model.DifficultyMedium, cfg.Difficulty)
	assert.Equal(t, model.QuestionMultipleChoice, cfg.QuestionType)
	assert.NoError(t, Validate(cfg))

	assert.Equal(t, MinQuestions, Normalize(model.QuizConfig{NumQuestions: 1}).NumQuestions)
	assert.Equal(t, MaxQuestions, Normalize(model.QuizConfig{NumQuestions: 42}).NumQuestions)

	assert.Error(t, Validate(Normalize(model.QuizConfig{})))
	assert.Error(t, Validate(Normalize(model.QuizConfig{Chapter: "x", Difficulty: "Impossible"})))
	assert.Error(t, Validate(Normalize(model.QuizConfig{Chapter: "x", QuestionType: "Essay"})))
}
