package app

import "quiz-bot/internal/domain"

// IsCorrect reports whether submitted matches the question's answer key.
// Ordered questions need an exact sequence match; the rest compare distinct values only.
func IsCorrect(submitted []string, question domain.Question) bool {
	if question.Options.CheckAnswerOrder {
		if len(submitted) != len(question.CorrectAnswer) {
			return false
		}
		for i := range submitted {
			if submitted[i] != question.CorrectAnswer[i] {
				return false
			}
		}
		return true
	}

	got := toSet(submitted)
	want := toSet(question.CorrectAnswer)
	if len(got) != len(want) {
		return false
	}
	for answer := range want {
		if _, ok := got[answer]; !ok {
			return false
		}
	}
	return true
}

// CountScore returns how many answered questions are correct.
// Ids missing from the catalog are ignored.
func CountScore(answers domain.AttemptAnswers, catalog domain.Catalog) int {
	score := 0
	for questionID, submitted := range answers {
		question, ok := catalog.Question(questionID)
		if !ok {
			continue
		}
		if IsCorrect(submitted, question) {
			score++
		}
	}
	return score
}

// Grade builds the per-question report in catalog order.
func Grade(answers domain.AttemptAnswers, catalog domain.Catalog) []domain.QuestionGrade {
	grades := make([]domain.QuestionGrade, 0, catalog.Len())
	for i, question := range catalog.Questions {
		submitted, answered := answers[question.ID]
		grades = append(grades, domain.QuestionGrade{
			QuestionID: question.ID,
			Number:     i + 1,
			Answered:   answered,
			Correct:    answered && IsCorrect(submitted, question),
		})
	}
	return grades
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
