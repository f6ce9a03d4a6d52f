package quiz

import (
	"strings"

	"github.com/pavelanni/tutor/internal/model"
)

// Feedback tiers, highest first.
var feedbackTiers = []struct {
	min     float64
	message string
}{
	{90, "Excellent work! You have a strong understanding of the topic. 🌟"},
	{75, "Great job! You're doing well. Review the incorrect answers to improve further. 👍"},
	{60, "Good effort! Keep practicing to strengthen your understanding. 📚"},
	{40, "You're making progress! Spend more time reviewing the concepts. 💪"},
}

const lowestTierFeedback = "Don't worry! Learning takes time. Review the material and try again. 🌱"

// Evaluate pairs each question with the answer at the same index. Missing
// answers count as empty. Comparison ignores case and surrounding space.
func Evaluate(quiz model.Quiz, answers []string) model.QuizResult {
	result := model.QuizResult{
		Total:           len(quiz.Questions),
		DetailedResults: make([]model.QuestionResult, 0, len(quiz.Questions)),
	}

	for i, q := range quiz.Questions {
		var given string
		if i < len(answers) {
			given = answers[i]
		}
		correct := normalize(given) == normalize(q.CorrectAnswer)
		if correct {
			result.Score++
		}
		result.DetailedResults = append(result.DetailedResults, model.QuestionResult{
			Question:      q.Question,
			UserAnswer:    given,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
		})
	}

	if result.Total > 0 {
		result.Percentage = float64(result.Score) / float64(result.Total) * 100
	}
	result.Feedback = Feedback(result.Percentage)
	return result
}

// Feedback returns the encouragement message for a percentage score.
func Feedback(percentage float64) string {
	for _, tier := range feedbackTiers {
		if percentage >= tier.min {
			return tier.message
		}
	}
	return lowestTierFeedback
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
